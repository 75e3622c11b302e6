// Package worknet builds instructions for the worknet on-chain program and
// decodes its accounts.
package worknet

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Default program and mint addresses on public clusters.
var (
	DefaultProgramID        = solana.MustPublicKeyFromBase58("EdUCoDdRnT5HsQ2Ejy3TWMTQP8iUyMQB4WzoNh45pNX9")
	DefaultLicenseMint      = solana.MustPublicKeyFromBase58("Ew5hokTuULRDsgnhKThGv3nrw3RPjiHASQZNcRNTHJ9Z")
	LocalnetLicenseMint     = solana.MustPublicKeyFromBase58("3CrKoTYzfbeenzQmhXMQzHM929kioTvsr1JtDSX9uET5")
	DefaultSignalServerURL  = "http://signal.daonetes.org:8080"
	DeviceFundingLamports   = solana.LAMPORTS_PER_SOL / 10
	licenseDepositAmount    = uint64(1_000_000_000)
	devicesPerLicenseToken  = uint64(10)
	scheduleReplicasPerCall = uint8(1)
)

// Instruction names as declared by the program.
const (
	InstructionCreateWorkGroup  = "create_work_group"
	InstructionCloseWorkGroup   = "close_work_group"
	InstructionRegisterDevice   = "register_device"
	InstructionCloseDevice      = "close_device"
	InstructionUpdateDevice     = "update_device"
	InstructionCreateWorkSpec   = "create_work_spec"
	InstructionCloseWorkSpec    = "close_work_spec"
	InstructionCreateDeployment = "create_deployment"
	InstructionCloseDeployment  = "close_deployment"
	InstructionSchedule         = "schedule"
)

// Account type names as declared by the program.
const (
	AccountWorkGroup  = "WorkGroup"
	AccountDevice     = "Device"
	AccountWorkSpec   = "WorkSpec"
	AccountDeployment = "Deployment"
)

// InstructionDiscriminator returns the 8-byte Anchor sighash of an instruction.
func InstructionDiscriminator(name string) [8]byte {
	return sighash("global", name)
}

// AccountDiscriminator returns the 8-byte Anchor prefix of an account type.
func AccountDiscriminator(name string) [8]byte {
	return sighash("account", name)
}

func sighash(namespace, name string) [8]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}

// WorkType selects the runtime for a spec.
type WorkType uint8

const (
	WorkTypeDockerCompose WorkType = iota
)

func (w WorkType) String() string {
	switch w {
	case WorkTypeDockerCompose:
		return "docker-compose"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(w))
	}
}

// DeviceStatus is the lifecycle state of a device.
type DeviceStatus uint8

const (
	DeviceStatusRequested DeviceStatus = iota
	DeviceStatusRegistered
	DeviceStatusDelinquent
	DeviceStatusCordoned
)

func (s DeviceStatus) String() string {
	switch s {
	case DeviceStatusRequested:
		return "requested"
	case DeviceStatusRegistered:
		return "registered"
	case DeviceStatusDelinquent:
		return "delinquent"
	case DeviceStatusCordoned:
		return "cordoned"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// MarshalText renders the status for JSON.
func (s DeviceStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// encodeInstruction writes the sighash followed by the borsh-encoded args.
func encodeInstruction(name string, args any) ([]byte, error) {
	disc := InstructionDiscriminator(name)
	buf := bytes.NewBuffer(disc[:])
	if args != nil {
		if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
			return nil, fmt.Errorf("encoding %s args: %w", name, err)
		}
	}
	return buf.Bytes(), nil
}

// decodeInstruction checks the sighash and decodes args from data.
func decodeInstruction(name string, data []byte, args any) error {
	disc := InstructionDiscriminator(name)
	if len(data) < 8 || !bytes.Equal(data[:8], disc[:]) {
		return fmt.Errorf("not a %s instruction", name)
	}
	if args == nil {
		return nil
	}
	if err := bin.NewBorshDecoder(data[8:]).Decode(args); err != nil {
		return fmt.Errorf("decoding %s args: %w", name, err)
	}
	return nil
}
