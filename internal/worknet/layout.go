package worknet

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Instruction arguments, in declaration order.

type CreateWorkGroupArgs struct {
	Name            string
	Identifier      string
	SignalServerURL string
}

type CloseWorkGroupArgs struct {
	Force bool
}

type RegisterDeviceArgs struct {
	DeviceAuthority solana.PublicKey
}

type CreateWorkSpecArgs struct {
	SpecName       string
	WorkType       WorkType
	URLOrContents  string
	ContentsSha256 string
	MetadataURL    string
	Mutable        bool
}

type CreateDeploymentArgs struct {
	Name     string
	Replicas uint8
}

type ScheduleArgs struct {
	Replicas uint8
}

// WorkGroup is the top-level account grouping devices, specs and deployments.
type WorkGroup struct {
	Bump            uint8              `json:"bump"`
	GroupAuthority  solana.PublicKey   `json:"group_authority"`
	Specs           []solana.PublicKey `json:"specs"`
	Devices         []solana.PublicKey `json:"devices"`
	Deployments     []solana.PublicKey `json:"deployments"`
	Name            string             `json:"name"`
	Identifier      string             `json:"identifier"`
	SignalServerURL string             `json:"signal_server_url"`
}

// Device is a registered compute node.
type Device struct {
	IPv4            [4]uint8         `json:"ipv4"`
	Hostname        string           `json:"hostname"`
	Bump            uint8            `json:"bump"`
	Status          DeviceStatus     `json:"status"`
	DeviceAuthority solana.PublicKey `json:"device_authority"`
	WorkGroup       solana.PublicKey `json:"work_group"`
}

// DeploymentArg is a runtime argument passed to a deployment.
type DeploymentArg struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Type  uint8  `json:"type"`
}

// Deployment requests Replicas instances of a spec.
type Deployment struct {
	Spec           solana.PublicKey `json:"spec"`
	Name           string           `json:"name"`
	Args           []DeploymentArg  `json:"args"`
	Replicas       uint8            `json:"replicas"`
	SelfBump       uint8            `json:"self_bump"`
	MintBump       uint8            `json:"mint_bump"`
	TokensBump     uint8            `json:"tokens_bump"`
	DeploymentBump uint8            `json:"deployment_bump"`
}

// WorkSpec is a deployable workload definition.
type WorkSpec struct {
	Name           string   `json:"name"`
	WorkType       WorkType `json:"work_type"`
	CreatedAt      uint64   `json:"created_at"`
	ModifiedAt     uint64   `json:"modified_at"`
	URLOrContents  string   `json:"url_or_contents"`
	ContentsSha256 string   `json:"contents_sha256"`
	MetadataURL    string   `json:"metadata_url"`
	Mutable        bool     `json:"mutable"`
}

// EncodeAccount serializes an account with its discriminator.
func EncodeAccount(name string, v any) ([]byte, error) {
	disc := AccountDiscriminator(name)
	buf := bytes.NewBuffer(disc[:])
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encoding %s account: %w", name, err)
	}
	return buf.Bytes(), nil
}

// DecodeAccount checks the discriminator and decodes account data into v.
func DecodeAccount(name string, data []byte, v any) error {
	disc := AccountDiscriminator(name)
	if len(data) < 8 || !bytes.Equal(data[:8], disc[:]) {
		return fmt.Errorf("account is not a %s", name)
	}
	if err := bin.NewBorshDecoder(data[8:]).Decode(v); err != nil {
		return fmt.Errorf("decoding %s account: %w", name, err)
	}
	return nil
}
