package models

import "fmt"

// Category is a named scoring bucket on a ScoreRecord.
type Category string

// Trivia genre buckets.
const (
	CategoryGeneralKnowledge Category = "general_knowledge"
	CategoryHistory          Category = "history"
	CategoryGeography        Category = "geography"
	CategoryScience          Category = "science"
	CategoryPopCulture       Category = "pop_culture"
	CategorySports           Category = "sports"
	CategoryMovies           Category = "movies"
	CategoryMusic            Category = "music"
	CategoryLiterature       Category = "literature"
	CategoryFoodAndDrink     Category = "food_and_drink"
	CategoryCurrentEvents    Category = "current_events"
	CategoryTechnology       Category = "technology"
	CategoryArt              Category = "art"
	CategoryPolitics         Category = "politics"
	CategoryNature           Category = "nature"
	CategoryMythology        Category = "mythology"
	CategoryBusiness         Category = "business"
	CategoryLanguage         Category = "language"
	CategoryTelevision       Category = "television"
	CategoryMiscellaneous    Category = "miscellaneous"
)

// Quarter buckets for four-quarter formats.
const (
	CategoryFirstQuarter  Category = "first_quarter"
	CategorySecondQuarter Category = "second_quarter"
	CategoryThirdQuarter  Category = "third_quarter"
	CategoryFourthQuarter Category = "fourth_quarter"
)

var knownCategories = map[Category]struct{}{
	CategoryGeneralKnowledge: {}, CategoryHistory: {}, CategoryGeography: {}, CategoryScience: {},
	CategoryPopCulture: {}, CategorySports: {}, CategoryMovies: {}, CategoryMusic: {},
	CategoryLiterature: {}, CategoryFoodAndDrink: {}, CategoryCurrentEvents: {}, CategoryTechnology: {},
	CategoryArt: {}, CategoryPolitics: {}, CategoryNature: {}, CategoryMythology: {},
	CategoryBusiness: {}, CategoryLanguage: {}, CategoryTelevision: {}, CategoryMiscellaneous: {},
	CategoryFirstQuarter: {}, CategorySecondQuarter: {}, CategoryThirdQuarter: {}, CategoryFourthQuarter: {},
}

// ParseCategory rejects names outside the enumerated set.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if _, ok := knownCategories[c]; !ok {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Valid reports whether c belongs to the enumerated set.
func (c Category) Valid() bool {
	_, ok := knownCategories[c]
	return ok
}
