package domain

// CreateWorkGroupRequest is the request body for creating a work group.
type CreateWorkGroupRequest struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	// DepositAccount is the license token account to fund the group from.
	// Empty picks the payer's first funded account.
	DepositAccount string `json:"deposit_account,omitempty"`
	DescriptionURL string `json:"description_url,omitempty"`
}

// RegisterDeviceRequest is the request body for registering a device.
type RegisterDeviceRequest struct {
	// DeviceKey defaults to the local agent's device wallet.
	DeviceKey      string `json:"device_key,omitempty"`
	DescriptionURL string `json:"description_url,omitempty"`
}

// CreateSpecRequest is the request body for creating a spec.
type CreateSpecRequest struct {
	Name           string `json:"name"`
	URL            string `json:"url"`
	MetadataURL    string `json:"metadata_url,omitempty"`
	DescriptionURL string `json:"description_url,omitempty"`
}

// CreateDeploymentRequest is the request body for creating a deployment.
type CreateDeploymentRequest struct {
	Name           string `json:"name"`
	SpecName       string `json:"spec_name"`
	Replicas       int    `json:"replicas"`
	DescriptionURL string `json:"description_url,omitempty"`
}

// ScheduleDeploymentRequest is the request body for scheduling one replica of
// a deployment onto a device.
type ScheduleDeploymentRequest struct {
	DeviceKey      string `json:"device_key"`
	DescriptionURL string `json:"description_url,omitempty"`
}

// CloseRequest carries the optional proposal description of a close
// operation.
type CloseRequest struct {
	DescriptionURL string `json:"description_url,omitempty"`
}

// WorkGroup is a work group as read from the ledger.
type WorkGroup struct {
	Address         string   `json:"address"`
	Identifier      string   `json:"identifier"`
	Name            string   `json:"name"`
	GroupAuthority  string   `json:"group_authority"`
	SignalServerURL string   `json:"signal_server_url"`
	Specs           []string `json:"specs"`
	Devices         []string `json:"devices"`
	Deployments     []string `json:"deployments"`
}

// Device is a registered device as read from the ledger.
type Device struct {
	Address         string `json:"address"`
	Hostname        string `json:"hostname"`
	IPv4            string `json:"ipv4"`
	Status          string `json:"status"`
	DeviceAuthority string `json:"device_authority"`
	WorkGroup       string `json:"work_group"`
}

// Spec is a work spec as read from the ledger.
type Spec struct {
	Address        string `json:"address"`
	Name           string `json:"name"`
	WorkType       string `json:"work_type"`
	URLOrContents  string `json:"url_or_contents"`
	ContentsSha256 string `json:"contents_sha256"`
	MetadataURL    string `json:"metadata_url,omitempty"`
	Mutable        bool   `json:"mutable"`
	CreatedAt      int64  `json:"created_at"`
}

// Deployment is a deployment as read from the ledger.
type Deployment struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Spec        string `json:"spec"`
	Replicas    int    `json:"replicas"`
	Unscheduled uint64 `json:"unscheduled"`
}

// ProposerInfo describes how operations are proposed.
type ProposerInfo struct {
	Kind       string `json:"kind"`
	Governed   bool   `json:"governed"`
	Wallet     string `json:"wallet"`
	Payer      string `json:"payer"`
	Governance string `json:"governance,omitempty"`
	Cluster    string `json:"cluster"`
}
