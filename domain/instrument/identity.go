package instrument

import (
	"fmt"
	"strings"
)

// Identity is the reply to *IDN?.
type Identity struct {
	Manufacturer string
	Model        string
	Serial       string
	Firmware     string
}

// ParseIdentity splits a "manufacturer,model,serial,firmware" reply.
func ParseIdentity(reply string) (Identity, error) {
	parts := strings.Split(strings.TrimSpace(reply), ",")
	if len(parts) < 2 {
		return Identity{}, fmt.Errorf("malformed identity %q", reply)
	}
	for len(parts) < 4 {
		parts = append(parts, "")
	}
	return Identity{
		Manufacturer: strings.TrimSpace(parts[0]),
		Model:        strings.TrimSpace(parts[1]),
		Serial:       strings.TrimSpace(parts[2]),
		Firmware:     strings.TrimSpace(strings.Join(parts[3:], ",")),
	}, nil
}

// String renders the identity as "manufacturer model (serial)".
func (i Identity) String() string {
	if i.Serial == "" {
		return strings.TrimSpace(i.Manufacturer + " " + i.Model)
	}
	return fmt.Sprintf("%s %s (%s)", i.Manufacturer, i.Model, i.Serial)
}

// IsRigol reports whether the identity belongs to a Rigol instrument.
func (i Identity) IsRigol() bool {
	return strings.Contains(strings.ToUpper(i.Manufacturer), "RIGOL")
}

// IsRohdeSchwarz reports whether the identity belongs to a Rohde & Schwarz instrument.
func (i Identity) IsRohdeSchwarz() bool {
	m := strings.ToUpper(i.Manufacturer)
	return strings.Contains(m, "ROHDE") || strings.HasPrefix(m, "R&S")
}
