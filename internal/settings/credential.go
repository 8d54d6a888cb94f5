package settings

import "slices"

// Well-known credential labels
const (
	AnonLabel        = "anon"
	ServiceRoleLabel = "service_role"
)

// Credential is a labeled secret value such as a project API key.
// Labels are expected to be unique within a list but this is not enforced.
type Credential struct {
	Label string `yaml:"label" json:"label"`
	Value string `yaml:"value" json:"value"`
}

// FindByLabel returns the first credential with the given label.
func FindByLabel(creds []Credential, label string) (Credential, bool) {
	for _, c := range creds {
		if c.Label == label {
			return c, true
		}
	}
	return Credential{}, false
}

// FindByValue returns the first credential with the given secret value.
// Used to show which label the active token belongs to.
func FindByValue(creds []Credential, value string) (Credential, bool) {
	if value == "" {
		return Credential{}, false
	}
	for _, c := range creds {
		if c.Value == value {
			return c, true
		}
	}
	return Credential{}, false
}

// Labels returns the labels of creds in order.
func Labels(creds []Credential) []string {
	labels := make([]string, 0, len(creds))
	for _, c := range creds {
		labels = append(labels, c.Label)
	}
	return labels
}

// Equal reports whether two credential lists hold the same records in the same order.
func Equal(a, b []Credential) bool {
	return slices.Equal(a, b)
}
