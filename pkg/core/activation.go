package core

import "strings"

// ActivationMethod is the fragmentation technique used to produce a product spectrum.
type ActivationMethod int

const (
	ActivationUnknown ActivationMethod = iota
	ActivationCID
	ActivationHCD
	ActivationETD
	ActivationECD
	ActivationETHCD
	ActivationUVPD
)

var activationNames = map[ActivationMethod]string{
	ActivationUnknown: "Unknown",
	ActivationCID:     "CID",
	ActivationHCD:     "HCD",
	ActivationETD:     "ETD",
	ActivationECD:     "ECD",
	ActivationETHCD:   "EThcD",
	ActivationUVPD:    "UVPD",
}

func (a ActivationMethod) String() string {
	if name, ok := activationNames[a]; ok {
		return name
	}
	return "Unknown"
}

// ParseActivationMethod maps a name such as "HCD" or "ethcd" to an ActivationMethod.
// Unrecognised names yield ActivationUnknown.
func ParseActivationMethod(name string) ActivationMethod {
	name = strings.TrimSpace(name)
	for method, n := range activationNames {
		if strings.EqualFold(n, name) {
			return method
		}
	}
	return ActivationUnknown
}
