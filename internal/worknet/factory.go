package worknet

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/go-logr/logr"

	"github.com/workbenchapp/worknet-proposer/internal/ledger"
)

// ErrNoLicenseTokens is returned when the payer holds no license tokens to
// deposit into a new work group.
var ErrNoLicenseTokens = errors.New("payer holds no license tokens")

// Built is the output of a factory operation.
type Built struct {
	Instructions []solana.Instruction
	// Addresses names the derived accounts the operation touches.
	Addresses map[string]solana.PublicKey
	// Content and Digest are set by CreateSpec.
	Content []byte
	Digest  string
}

func built(addrs map[string]solana.PublicKey, ixs ...solana.Instruction) *Built {
	return &Built{Instructions: ixs, Addresses: addrs}
}

// Factory builds the instructions for each worknet operation. Every account
// address is derived here from human-level inputs.
type Factory struct {
	builder
	pdas      PDAs
	signalURL string
	reader    ledger.Reader
	fetcher   ContentFetcher
}

// NewFactory creates a new Factory.
func NewFactory(program, licenseMint solana.PublicKey, signalURL string, reader ledger.Reader, fetcher ContentFetcher) *Factory {
	return &Factory{
		builder:   builder{program: program, licenseMint: licenseMint},
		pdas:      PDAs{Program: program},
		signalURL: signalURL,
		reader:    reader,
		fetcher:   fetcher,
	}
}

// PDAs returns the address deriver for the factory's program.
func (f *Factory) PDAs() PDAs {
	return f.pdas
}

// LicenseMint returns the mint whose tokens license a work group.
func (f *Factory) LicenseMint() solana.PublicKey {
	return f.licenseMint
}

// CreateWorkGroup builds a group creation. When depositing is the zero key the
// payer's first funded license token account is used.
func (f *Factory) CreateWorkGroup(ctx context.Context, payer solana.PublicKey, identifier, name string, depositing solana.PublicKey) (*Built, error) {
	group, err := f.pdas.WorkGroup(identifier)
	if err != nil {
		return nil, err
	}
	license, err := f.pdas.LicenseTokens(group.Key)
	if err != nil {
		return nil, err
	}

	if depositing.IsZero() {
		depositing, err = f.fundedLicenseAccount(ctx, payer)
		if err != nil {
			return nil, err
		}
	}

	ix, err := f.createWorkGroup(payer, group.Key, license.Key, depositing, CreateWorkGroupArgs{
		Name:            name,
		Identifier:      identifier,
		SignalServerURL: f.signalURL,
	})
	if err != nil {
		return nil, err
	}
	return built(map[string]solana.PublicKey{
		"group":                group.Key,
		"group_license_tokens": license.Key,
		"depositing_license":   depositing,
	}, ix), nil
}

func (f *Factory) fundedLicenseAccount(ctx context.Context, payer solana.PublicKey) (solana.PublicKey, error) {
	accounts, err := f.reader.TokenAccountsByOwner(ctx, payer, f.licenseMint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	for _, ta := range accounts {
		if ta.Amount > 0 {
			logr.FromContextOrDiscard(ctx).V(1).Info("using license token account", "account", ta.Address, "amount", ta.Amount)
			return ta.Address, nil
		}
	}
	return solana.PublicKey{}, fmt.Errorf("%w: %s has no %s balance", ErrNoLicenseTokens, payer, f.licenseMint)
}

// CloseWorkGroup builds a forced group close that returns the deposited
// license tokens to the payer's associated token account.
func (f *Factory) CloseWorkGroup(payer solana.PublicKey, identifier string) (*Built, error) {
	group, err := f.pdas.WorkGroup(identifier)
	if err != nil {
		return nil, err
	}
	license, err := f.pdas.LicenseTokens(group.Key)
	if err != nil {
		return nil, err
	}
	withdrawing, _, err := solana.FindAssociatedTokenAddress(payer, f.licenseMint)
	if err != nil {
		return nil, fmt.Errorf("deriving license token account of %s: %w", payer, err)
	}

	ix, err := f.closeWorkGroup(payer, group.Key, license.Key, withdrawing)
	if err != nil {
		return nil, err
	}
	return built(map[string]solana.PublicKey{
		"group":                group.Key,
		"group_license_tokens": license.Key,
		"withdrawing_license":  withdrawing,
	}, ix), nil
}

// RegisterDevice builds two instructions: a funding transfer to the device
// key so it can pay its own fees, then the registration.
func (f *Factory) RegisterDevice(payer solana.PublicKey, identifier string, deviceKey solana.PublicKey) (*Built, error) {
	group, err := f.pdas.WorkGroup(identifier)
	if err != nil {
		return nil, err
	}
	license, err := f.pdas.LicenseTokens(group.Key)
	if err != nil {
		return nil, err
	}
	device, err := f.pdas.Device(deviceKey)
	if err != nil {
		return nil, err
	}

	fund := system.NewTransferInstruction(DeviceFundingLamports, payer, deviceKey).Build()
	register, err := f.registerDevice(payer, device.Key, license.Key, group.Key, deviceKey)
	if err != nil {
		return nil, err
	}
	return built(map[string]solana.PublicKey{
		"group":  group.Key,
		"device": device.Key,
	}, fund, register), nil
}

// CloseDevice builds a device removal.
func (f *Factory) CloseDevice(payer solana.PublicKey, identifier string, deviceKey solana.PublicKey) (*Built, error) {
	group, err := f.pdas.WorkGroup(identifier)
	if err != nil {
		return nil, err
	}
	device, err := f.pdas.Device(deviceKey)
	if err != nil {
		return nil, err
	}

	ix, err := f.closeDevice(payer, device.Key, group.Key)
	if err != nil {
		return nil, err
	}
	return built(map[string]solana.PublicKey{
		"group":  group.Key,
		"device": device.Key,
	}, ix), nil
}

// CreateSpec fetches the spec document, records its sha256 and builds the
// spec creation. A fetch failure aborts before anything is built.
func (f *Factory) CreateSpec(ctx context.Context, payer solana.PublicKey, identifier, name, url, metadataURL string) (*Built, error) {
	group, err := f.pdas.WorkGroup(identifier)
	if err != nil {
		return nil, err
	}
	spec, err := f.pdas.Spec(group.Key, name)
	if err != nil {
		return nil, err
	}

	content, err := f.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	digest := ContentDigest(content)

	ix, err := f.createWorkSpec(payer, spec.Key, group.Key, CreateWorkSpecArgs{
		SpecName:       name,
		WorkType:       WorkTypeDockerCompose,
		URLOrContents:  url,
		ContentsSha256: digest,
		MetadataURL:    metadataURL,
		Mutable:        false,
	})
	if err != nil {
		return nil, err
	}

	b := built(map[string]solana.PublicKey{
		"group": group.Key,
		"spec":  spec.Key,
	}, ix)
	b.Content = content
	b.Digest = digest
	return b, nil
}

// CloseSpec builds a spec removal.
func (f *Factory) CloseSpec(payer solana.PublicKey, identifier, name string) (*Built, error) {
	group, err := f.pdas.WorkGroup(identifier)
	if err != nil {
		return nil, err
	}
	spec, err := f.pdas.Spec(group.Key, name)
	if err != nil {
		return nil, err
	}

	ix, err := f.closeWorkSpec(payer, spec.Key, group.Key)
	if err != nil {
		return nil, err
	}
	return built(map[string]solana.PublicKey{
		"group": group.Key,
		"spec":  spec.Key,
	}, ix), nil
}

type deploymentAddrs struct {
	group, deployment, mint, tokens solana.PublicKey
}

func (f *Factory) deploymentAddresses(identifier, name string) (deploymentAddrs, error) {
	group, err := f.pdas.WorkGroup(identifier)
	if err != nil {
		return deploymentAddrs{}, err
	}
	deployment, err := f.pdas.Deployment(group.Key, name)
	if err != nil {
		return deploymentAddrs{}, err
	}
	mint, err := f.pdas.DeploymentMint(deployment.Key)
	if err != nil {
		return deploymentAddrs{}, err
	}
	tokens, err := f.pdas.DeploymentTokens(deployment.Key)
	if err != nil {
		return deploymentAddrs{}, err
	}
	return deploymentAddrs{group: group.Key, deployment: deployment.Key, mint: mint.Key, tokens: tokens.Key}, nil
}

// CreateDeployment builds a deployment of specName with the given replica
// count. The program mints one replica token per replica.
func (f *Factory) CreateDeployment(payer solana.PublicKey, identifier, specName, name string, replicas uint8) (*Built, error) {
	addrs, err := f.deploymentAddresses(identifier, name)
	if err != nil {
		return nil, err
	}
	spec, err := f.pdas.Spec(addrs.group, specName)
	if err != nil {
		return nil, err
	}

	ix, err := f.createDeployment(payer, addrs.deployment, spec.Key, addrs.mint, addrs.tokens, addrs.group, CreateDeploymentArgs{
		Name:     name,
		Replicas: replicas,
	})
	if err != nil {
		return nil, err
	}
	return built(map[string]solana.PublicKey{
		"group":             addrs.group,
		"spec":              spec.Key,
		"deployment":        addrs.deployment,
		"deployment_mint":   addrs.mint,
		"deployment_tokens": addrs.tokens,
	}, ix), nil
}

// CloseDeployment builds a deployment removal.
func (f *Factory) CloseDeployment(payer solana.PublicKey, identifier, name string) (*Built, error) {
	addrs, err := f.deploymentAddresses(identifier, name)
	if err != nil {
		return nil, err
	}

	ix, err := f.closeDeployment(payer, addrs.deployment, addrs.mint, addrs.tokens, addrs.group)
	if err != nil {
		return nil, err
	}
	return built(map[string]solana.PublicKey{
		"group":             addrs.group,
		"deployment":        addrs.deployment,
		"deployment_mint":   addrs.mint,
		"deployment_tokens": addrs.tokens,
	}, ix), nil
}

// ScheduleDeployment builds the assignment of one replica to a device. The
// replica limit is enforced on-chain.
func (f *Factory) ScheduleDeployment(payer solana.PublicKey, identifier, name string, deviceKey solana.PublicKey) (*Built, error) {
	addrs, err := f.deploymentAddresses(identifier, name)
	if err != nil {
		return nil, err
	}
	device, err := f.pdas.Device(deviceKey)
	if err != nil {
		return nil, err
	}
	deviceTokens, err := f.pdas.DeviceTokens(deviceKey, addrs.deployment)
	if err != nil {
		return nil, err
	}

	ix, err := f.schedule(payer, addrs.group, addrs.deployment, addrs.mint, addrs.tokens, device.Key, deviceKey, deviceTokens.Key)
	if err != nil {
		return nil, err
	}
	return built(map[string]solana.PublicKey{
		"group":         addrs.group,
		"deployment":    addrs.deployment,
		"device":        device.Key,
		"device_tokens": deviceTokens.Key,
	}, ix), nil
}
