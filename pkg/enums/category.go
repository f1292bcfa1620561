package enums

import "fmt"

// Category buckets a subscription into the predefined catalog groups.
type Category string

const (
	CategoryStreaming Category = "STREAMING"
	CategoryMusic     Category = "MUSIC"
	CategorySoftware  Category = "SOFTWARE"
	CategoryGaming    Category = "GAMING"
	CategoryCloud     Category = "CLOUD"
	CategoryEducation Category = "EDUCATION"
	CategoryFitness   Category = "FITNESS"
	CategoryNews      Category = "NEWS"
	CategoryUtilities Category = "UTILITIES"
	CategoryOther     Category = "OTHER"
)

var validCategories = []Category{
	CategoryStreaming,
	CategoryMusic,
	CategorySoftware,
	CategoryGaming,
	CategoryCloud,
	CategoryEducation,
	CategoryFitness,
	CategoryNews,
	CategoryUtilities,
	CategoryOther,
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Category.
func (c Category) IsValid() bool {
	for _, candidate := range validCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCategory converts raw input into a Category.
func ParseCategory(value string) (Category, error) {
	for _, candidate := range validCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid category %q", value)
}
