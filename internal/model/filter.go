package model

// FormatFilter holds criteria for querying formats. OwnerID is mandatory:
// every query is scoped to one owner so that unowned records are
// indistinguishable from absent ones.
type FormatFilter struct {
	OwnerID        string
	IDs            []string
	Service        ServiceKind
	Search         string // substring match on name
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// DeploymentFilter holds criteria for querying ledger entries.
// OwnerID is mandatory.
type DeploymentFilter struct {
	OwnerID         string
	InstanceID      string
	Service         ServiceKind
	OnlyNeedsUpdate bool
}
