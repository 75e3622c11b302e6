package worknet

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/workbenchapp/worknet-proposer/internal/ledger"
)

// Accounts reads and decodes worknet accounts from the ledger.
type Accounts struct {
	pdas   PDAs
	reader ledger.Reader
}

// NewAccounts creates a new account reader.
func NewAccounts(program solana.PublicKey, reader ledger.Reader) *Accounts {
	return &Accounts{pdas: PDAs{Program: program}, reader: reader}
}

func (a *Accounts) load(ctx context.Context, key solana.PublicKey, name string, v any) error {
	acct, err := a.reader.GetAccount(ctx, key)
	if err != nil {
		return fmt.Errorf("%s %s: %w", name, key, err)
	}
	if !acct.Owner.Equals(a.pdas.Program) {
		return fmt.Errorf("%s %s is owned by %s", name, key, acct.Owner)
	}
	return DecodeAccount(name, acct.Data, v)
}

// WorkGroup loads a group by identifier.
func (a *Accounts) WorkGroup(ctx context.Context, identifier string) (solana.PublicKey, *WorkGroup, error) {
	addr, err := a.pdas.WorkGroup(identifier)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	group, err := a.WorkGroupAt(ctx, addr.Key)
	return addr.Key, group, err
}

// WorkGroupAt loads a group by address.
func (a *Accounts) WorkGroupAt(ctx context.Context, key solana.PublicKey) (*WorkGroup, error) {
	var group WorkGroup
	if err := a.load(ctx, key, AccountWorkGroup, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// Device loads a device by address.
func (a *Accounts) Device(ctx context.Context, key solana.PublicKey) (*Device, error) {
	var device Device
	if err := a.load(ctx, key, AccountDevice, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

// Spec loads a spec by address.
func (a *Accounts) Spec(ctx context.Context, key solana.PublicKey) (*WorkSpec, error) {
	var spec WorkSpec
	if err := a.load(ctx, key, AccountWorkSpec, &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Deployment loads a deployment by address.
func (a *Accounts) Deployment(ctx context.Context, key solana.PublicKey) (*Deployment, error) {
	var deployment Deployment
	if err := a.load(ctx, key, AccountDeployment, &deployment); err != nil {
		return nil, err
	}
	return &deployment, nil
}

// UnscheduledReplicas returns how many replica tokens a deployment still holds.
func (a *Accounts) UnscheduledReplicas(ctx context.Context, group solana.PublicKey, name string) (uint64, error) {
	deployment, err := a.pdas.Deployment(group, name)
	if err != nil {
		return 0, err
	}
	tokens, err := a.pdas.DeploymentTokens(deployment.Key)
	if err != nil {
		return 0, err
	}
	return a.reader.TokenBalance(ctx, tokens.Key)
}

// ScheduledReplicas returns how many replicas of a deployment are scheduled
// on a device. A device that was never scheduled has zero.
func (a *Accounts) ScheduledReplicas(ctx context.Context, group solana.PublicKey, name string, deviceKey solana.PublicKey) (uint64, error) {
	deployment, err := a.pdas.Deployment(group, name)
	if err != nil {
		return 0, err
	}
	tokens, err := a.pdas.DeviceTokens(deviceKey, deployment.Key)
	if err != nil {
		return 0, err
	}
	amount, err := a.reader.TokenBalance(ctx, tokens.Key)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return 0, nil
	}
	return amount, err
}
