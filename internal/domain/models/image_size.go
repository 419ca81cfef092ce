package models

// Image sizes accepted by the image generation provider.
const (
	ImageSizeSquare       = "1024*1024"
	ImageSizePortrait     = "720*1280"
	ImageSizeLandscape    = "1280*720"
	ImageSizePortraitTall = "768*1152"
	DefaultGenerationSize = ImageSizeSquare
)

// AllowedImageSizes lists the generation sizes in the order they are offered to the model.
var AllowedImageSizes = []string{
	ImageSizeSquare,
	ImageSizePortrait,
	ImageSizeLandscape,
	ImageSizePortraitTall,
}

// IsAllowedImageSize reports whether size is one of AllowedImageSizes.
func IsAllowedImageSize(size string) bool {
	for _, s := range AllowedImageSizes {
		if s == size {
			return true
		}
	}
	return false
}

// ResolveImageSize returns size when it is allowed and DefaultGenerationSize otherwise.
func ResolveImageSize(size string) string {
	if IsAllowedImageSize(size) {
		return size
	}
	return DefaultGenerationSize
}
