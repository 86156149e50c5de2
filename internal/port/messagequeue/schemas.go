package messagequeue

// OrgRegisteredPayload is the schema for orgs.registered messages.
type OrgRegisteredPayload struct {
	OrgID        string `json:"org_id"`
	Name         string `json:"name"`
	JoinCode     string `json:"join_code"`
	DatabaseName string `json:"database_name"`
	AdminEmail   string `json:"admin_email"`
}

// OrgProvisionFailPayload is the schema for orgs.provision.fail messages.
type OrgProvisionFailPayload struct {
	Name         string `json:"name"`
	DatabaseName string `json:"database_name"`
	State        string `json:"state"`
	Error        string `json:"error"`
}

// TenantDroppedPayload is the schema for orgs.tenant.dropped messages.
type TenantDroppedPayload struct {
	DatabaseName string `json:"database_name"`
	Operator     string `json:"operator"`
}
