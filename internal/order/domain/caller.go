package domain

type Role string

const (
	RoleVendor   Role = "vendor"
	RoleSupplier Role = "supplier"
)

func (r Role) Valid() bool {
	return r == RoleVendor || r == RoleSupplier
}

// Caller is the authenticated identity a request acts as.
type Caller struct {
	ID      string
	Name    string
	Role    Role
	Address string
}

func (c Caller) IsVendor() bool   { return c.Role == RoleVendor }
func (c Caller) IsSupplier() bool { return c.Role == RoleSupplier }

// Authorization policy, one function per operation.

// CanView: the buyer, or a supplier of at least one line.
func CanView(c Caller, o Order) bool {
	switch c.Role {
	case RoleVendor:
		return o.VendorID == c.ID
	case RoleSupplier:
		return o.HasSupplier(c.ID)
	}
	return false
}

// CanTransition: only a supplier of at least one line.
func CanTransition(c Caller, o Order) bool {
	return c.IsSupplier() && o.HasSupplier(c.ID)
}

// CanCancel: same audience as CanView.
func CanCancel(c Caller, o Order) bool {
	return CanView(c, o)
}

// CanManageMaterial: the owning supplier.
func CanManageMaterial(c Caller, m Material) bool {
	return c.IsSupplier() && m.SupplierID == c.ID
}

// Scope turns a caller into the identity filter of an order listing.
func Scope(c Caller, q OrderQuery) (OrderQuery, bool) {
	switch c.Role {
	case RoleVendor:
		q.VendorID, q.SupplierID = c.ID, ""
	case RoleSupplier:
		q.VendorID, q.SupplierID = "", c.ID
	default:
		return q, false
	}
	return q, true
}
