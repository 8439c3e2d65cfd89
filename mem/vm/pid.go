package vm

import "github.com/rs/xid"

// PID stands for Process ID.
type PID uint32

// ASID identifies one address space for its whole lifetime. Frame ownership
// slots hold an ASID rather than a pointer, so they never keep an address
// space alive.
type ASID = xid.ID

// NewASID mints a fresh address-space identifier.
func NewASID() ASID {
	return xid.New()
}
