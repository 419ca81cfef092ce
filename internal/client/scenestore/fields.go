package scenestore

import (
	"errors"
	"fmt"

	"storyboard/internal/domain/models"
)

// Field names an editable scene field, using the wire names
type Field string

const (
	FieldContent         Field = "content"
	FieldImageURL        Field = "image_url"
	FieldAINotes         Field = "ai_notes"
	FieldShotNumber      Field = "shot_number"
	FieldFrame           Field = "frame"
	FieldShotType        Field = "shot_type"
	FieldDurationSeconds Field = "duration_seconds"
	FieldNotes           Field = "notes"
)

var (
	ErrUnknownField = errors.New("unknown scene field")
	ErrInvalidValue = errors.New("invalid field value")
)

// setField assigns value to field. Nullable text fields accept a string,
// a *string or nil; duration accepts an int, a *int or nil.
// Fresh pointers are stored so copies handed out never alias each other.
func setField(sc *models.Scene, field Field, value interface{}) error {
	switch field {
	case FieldContent:
		text, err := asText(field, value)
		if err != nil {
			return err
		}
		if text == nil {
			sc.Content = ""
		} else {
			sc.Content = *text
		}
	case FieldImageURL:
		return assignText(&sc.ImageURL, field, value)
	case FieldAINotes:
		return assignText(&sc.AINotes, field, value)
	case FieldShotNumber:
		return assignText(&sc.ShotNumber, field, value)
	case FieldFrame:
		return assignText(&sc.Frame, field, value)
	case FieldShotType:
		return assignText(&sc.ShotType, field, value)
	case FieldNotes:
		return assignText(&sc.Notes, field, value)
	case FieldDurationSeconds:
		n, err := asInt(field, value)
		if err != nil {
			return err
		}
		sc.DurationSeconds = n
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

func assignText(dst **string, field Field, value interface{}) error {
	text, err := asText(field, value)
	if err != nil {
		return err
	}
	*dst = text
	return nil
}

func asText(field Field, value interface{}) (*string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return &v, nil
	case *string:
		if v == nil {
			return nil, nil
		}
		text := *v
		return &text, nil
	default:
		return nil, fmt.Errorf("%w: %s expects text, got %T", ErrInvalidValue, field, value)
	}
}

func asInt(field Field, value interface{}) (*int, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case int:
		if v <= 0 {
			return nil, fmt.Errorf("%w: %s must be positive", ErrInvalidValue, field)
		}
		return &v, nil
	case *int:
		if v == nil {
			return nil, nil
		}
		return asInt(field, *v)
	default:
		return nil, fmt.Errorf("%w: %s expects an integer, got %T", ErrInvalidValue, field, value)
	}
}

// buildUpdate copies the named fields of sc into a partial update.
// A nil nullable field is sent as an empty value, which clears it server side.
func buildUpdate(sc *models.Scene, fields []Field) (*models.SceneUpdate, error) {
	u := &models.SceneUpdate{}
	for _, f := range fields {
		switch f {
		case FieldContent:
			content := sc.Content
			u.Content = &content
		case FieldImageURL:
			u.ImageURL = orEmpty(sc.ImageURL)
		case FieldAINotes:
			u.AINotes = orEmpty(sc.AINotes)
		case FieldShotNumber:
			u.ShotNumber = orEmpty(sc.ShotNumber)
		case FieldFrame:
			u.Frame = orEmpty(sc.Frame)
		case FieldShotType:
			u.ShotType = orEmpty(sc.ShotType)
		case FieldNotes:
			u.Notes = orEmpty(sc.Notes)
		case FieldDurationSeconds:
			n := 0
			if sc.DurationSeconds != nil {
				n = *sc.DurationSeconds
			}
			u.DurationSeconds = &n
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, f)
		}
	}
	return u, nil
}

func orEmpty(s *string) *string {
	v := ""
	if s != nil {
		v = *s
	}
	return &v
}
