package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModel(t *testing.T) {
	tests := []struct {
		name         string
		modelStr     string
		wantProvider string
		wantModel    string
		wantErr      bool
	}{
		{
			name:         "kimi model",
			modelStr:     "kimi-k2-0905-preview",
			wantProvider: "kimi",
			wantModel:    "kimi-k2-0905-preview",
		},
		{
			name:         "moonshot alias",
			modelStr:     "moonshot-v1-32k",
			wantProvider: "kimi",
			wantModel:    "moonshot-v1-32k",
		},
		{
			name:         "qwen model",
			modelStr:     "qwen-max",
			wantProvider: "qwen",
			wantModel:    "qwen-max",
		},
		{
			name:         "explicit provider",
			modelStr:     "Qwen/qwen-plus",
			wantProvider: "qwen",
			wantModel:    "qwen-plus",
		},
		{
			name:         "explicit provider keeps the rest of the path",
			modelStr:     "kimi/org/model",
			wantProvider: "kimi",
			wantModel:    "org/model",
		},
		{
			name:      "unknown prefix",
			modelStr:  "gpt-4o",
			wantModel: "gpt-4o",
		},
		{
			name:     "empty",
			modelStr: "  ",
			wantErr:  true,
		},
		{
			name:     "empty provider",
			modelStr: "/qwen-max",
			wantErr:  true,
		},
		{
			name:     "empty model",
			modelStr: "qwen/",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseModel(tt.modelStr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantProvider, got.Provider)
			assert.Equal(t, tt.wantModel, got.Model)
		})
	}
}
