package question

import "strings"

// License is a driving license category questions are tagged with.
type License struct {
	Code string `json:"code"`
	Key  string `json:"key"`
}

// Topic is a practice topic stored in kategoria_pytania.
type Topic struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

// Licenses in display order.
var Licenses = []License{
	{Code: "B", Key: "category_b"},
	{Code: "A", Key: "category_a"},
	{Code: "C", Key: "category_c"},
}

// Topics in display order.
var Topics = []Topic{
	{Name: "Znaki drogowe", Key: "signs"},
	{Name: "Przepisy ruchu", Key: "rules"},
	{Name: "Bezpieczeństwo pojazdy", Key: "vehicle_safety"},
	{Name: "Technika jazdy", Key: "driving_technique"},
	{Name: "Nawigacja drogowa", Key: "navigation"},
	{Name: "Procedury awaryjne", Key: "emergency"},
	{Name: "Inne", Key: "other"},
}

// LookupLicense matches a license code case-insensitively.
func LookupLicense(code string) (License, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, l := range Licenses {
		if l.Code == code {
			return l, true
		}
	}
	return License{}, false
}

// LookupTopic accepts either the stored topic name or its key.
func LookupTopic(nameOrKey string) (Topic, bool) {
	nameOrKey = strings.TrimSpace(nameOrKey)
	for _, t := range Topics {
		if t.Key == nameOrKey || strings.EqualFold(t.Name, nameOrKey) {
			return t, true
		}
	}
	return Topic{}, false
}
