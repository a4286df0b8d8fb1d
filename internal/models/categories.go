package models

// CategoryDefinition maps a check-item key to its display label and section.
// Reference data, loaded once, never mutated at runtime.
type CategoryDefinition struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Section string `json:"section"`
}

var HygieneCategories = []CategoryDefinition{
	{Key: "temperature", Label: "体温", Section: "体調"},
	{Key: "no_health_issues", Label: "本人に体調異常はないか", Section: "体調"},
	{Key: "family_no_symptoms", Label: "同居者に症状はないか", Section: "体調"},
	{Key: "no_respiratory_symptoms", Label: "咳や喉の腫れはない", Section: "呼吸器"},
	{Key: "no_severe_hand_damage", Label: "重度の手荒れはないか", Section: "手指"},
	{Key: "no_mild_hand_damage", Label: "軽度の手荒れないか", Section: "手指"},
	{Key: "nails_groomed", Label: "爪・ひげは整っている", Section: "服装"},
	{Key: "proper_uniform", Label: "服装が正しい", Section: "服装"},
	{Key: "no_work_illness", Label: "作業中に体調不良・怪我等の発生はなかったか", Section: "退勤時"},
	{Key: "proper_handwashing", Label: "手洗いは規定通りに実施した", Section: "退勤時"},
}

var categoryByKey = func() map[string]CategoryDefinition {
	m := make(map[string]CategoryDefinition, len(HygieneCategories))
	for _, c := range HygieneCategories {
		m[c.Key] = c
	}
	return m
}()

// LookupCategory resolves a category key. Unknown keys fall back to the raw
// key as label with an empty section, never an error.
func LookupCategory(key string) CategoryDefinition {
	if c, ok := categoryByKey[key]; ok {
		return c
	}
	return CategoryDefinition{Key: key, Label: key, Section: ""}
}

// CategoryLabel returns the display label for a key, preferring an explicit
// fallback over the raw key when the key is unknown.
func CategoryLabel(key, fallback string) string {
	if c, ok := categoryByKey[key]; ok {
		return c.Label
	}
	if fallback != "" {
		return fallback
	}
	return key
}

func CategorySection(key string) string {
	return categoryByKey[key].Section
}
