package stock

// Reference is the opaque pointer a movement carries to whatever caused it:
// a cart, a checkout, an admin action. The engine never dereferences it.
type Reference struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Common reference kinds used by this repo's own callers. Callers may pass
// any kind they like.
const (
	RefCheckout = "checkout"
	RefCart     = "cart"
	RefAdmin    = "admin"
	RefImport   = "import"
	RefSweep    = "sweep"
)
