package worknet

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/workbenchapp/worknet-proposer/internal/ledger"
	"github.com/workbenchapp/worknet-proposer/internal/ledger/memory"
)

// Anchor framework errors the simulator can raise.
var (
	errConstraintHasOne      = ProgramError{2001, "ConstraintHasOne", "A has one constraint was violated"}
	errConstraintSeeds       = ProgramError{2006, "ConstraintSeeds", "A seeds constraint was violated"}
	errAccountNotSigner      = ProgramError{3010, "AccountNotSigner", "The given account did not sign"}
	errAccountNotInitialized = ProgramError{3012, "AccountNotInitialized", "The program expected this account to be already initialized"}
)

// Simulator executes worknet instructions against the in-memory ledger. It
// keeps the same account layouts and token bookkeeping as the program so the
// account readers work unchanged against it.
type Simulator struct {
	pdas        PDAs
	licenseMint solana.PublicKey
	now         func() time.Time
}

// NewSimulator creates a simulator for the given program and license mint.
func NewSimulator(program, licenseMint solana.PublicKey) *Simulator {
	return &Simulator{
		pdas:        PDAs{Program: program},
		licenseMint: licenseMint,
		now:         time.Now,
	}
}

// Install registers the simulator with a ledger.
func (s *Simulator) Install(l *memory.Ledger) {
	l.Register(s.pdas.Program, s.Execute)
}

// Execute applies one instruction.
func (s *Simulator) Execute(st *memory.State, ix memory.Instruction) error {
	if len(ix.Data) < 8 {
		return fmt.Errorf("custom program error: 0x64")
	}
	if len(ix.Accounts) == 0 || !ix.Accounts[0].IsSigner {
		return s.fail(st, errAccountNotSigner)
	}

	handlers := map[string]func(*memory.State, memory.Instruction) error{
		InstructionCreateWorkGroup:  s.createWorkGroup,
		InstructionCloseWorkGroup:   s.closeWorkGroup,
		InstructionRegisterDevice:   s.registerDevice,
		InstructionCloseDevice:      s.closeDevice,
		InstructionCreateWorkSpec:   s.createWorkSpec,
		InstructionCloseWorkSpec:    s.closeWorkSpec,
		InstructionCreateDeployment: s.createDeployment,
		InstructionCloseDeployment:  s.closeDeployment,
		InstructionSchedule:         s.schedule,
	}
	for name, handle := range handlers {
		disc := InstructionDiscriminator(name)
		if bytes.Equal(ix.Data[:8], disc[:]) {
			st.Logf("Program log: Instruction: %s", name)
			return handle(st, ix)
		}
	}
	st.Logf("Program log: AnchorError occurred. Error Code: InstructionFallbackNotFound. Error Number: 101.")
	return fmt.Errorf("custom program error: 0x65")
}

func (s *Simulator) fail(st *memory.State, pe ProgramError) error {
	st.Logf("Program log: AnchorError occurred. Error Code: %s. Error Number: %d. Error Message: %s.", pe.Name, pe.Code, pe.Message)
	return fmt.Errorf("custom program error: %s", pe.Hex())
}

func (s *Simulator) load(st *memory.State, key solana.PublicKey, name string, v any) error {
	acct, ok := st.Account(key)
	if !ok || !acct.Owner.Equals(s.pdas.Program) {
		return s.fail(st, errAccountNotInitialized)
	}
	if err := DecodeAccount(name, acct.Data, v); err != nil {
		st.Logf("Program log: %v", err)
		return fmt.Errorf("custom program error: 0xbba")
	}
	return nil
}

func (s *Simulator) store(st *memory.State, key solana.PublicKey, name string, v any) error {
	data, err := EncodeAccount(name, v)
	if err != nil {
		return err
	}
	st.SetAccount(key, &ledger.Account{Owner: s.pdas.Program, Data: data})
	return nil
}

func (s *Simulator) create(st *memory.State, key solana.PublicKey, name string, v any) error {
	if st.Exists(key) {
		st.Logf("Allocate: account Address { address: %s, base: None } already in use", key)
		return fmt.Errorf("custom program error: 0x0")
	}
	return s.store(st, key, name, v)
}

// loadGroup loads the group at accounts[i] and checks the signer is its
// authority.
func (s *Simulator) loadGroup(st *memory.State, ix memory.Instruction, i int) (*WorkGroup, error) {
	var group WorkGroup
	if err := s.load(st, ix.Account(i), AccountWorkGroup, &group); err != nil {
		return nil, err
	}
	if !group.GroupAuthority.Equals(ix.Account(0)) {
		return nil, s.fail(st, errConstraintHasOne)
	}
	return &group, nil
}

func (s *Simulator) checkSeeds(st *memory.State, got solana.PublicKey, want func() (solana.PublicKey, error)) error {
	key, err := want()
	if err != nil || !key.Equals(got) {
		return s.fail(st, errConstraintSeeds)
	}
	return nil
}

func (s *Simulator) createWorkGroup(st *memory.State, ix memory.Instruction) error {
	var args CreateWorkGroupArgs
	if err := decodeInstruction(InstructionCreateWorkGroup, ix.Data, &args); err != nil {
		return err
	}
	payer, groupKey, license, depositing := ix.Account(0), ix.Account(1), ix.Account(3), ix.Account(4)

	if err := s.checkSeeds(st, groupKey, func() (solana.PublicKey, error) {
		addr, err := s.pdas.WorkGroup(args.Identifier)
		return addr.Key, err
	}); err != nil {
		return err
	}

	deposit, ok := st.Token(depositing)
	if !ok || !deposit.Mint.Equals(s.licenseMint) || deposit.Amount == 0 {
		return s.fail(st, ErrInsufficientLicenseTokens)
	}

	group := WorkGroup{
		GroupAuthority:  payer,
		Name:            args.Name,
		Identifier:      args.Identifier,
		SignalServerURL: args.SignalServerURL,
	}
	if addr, err := s.pdas.WorkGroup(args.Identifier); err == nil {
		group.Bump = addr.Bump
	}
	if err := s.create(st, groupKey, AccountWorkGroup, &group); err != nil {
		return err
	}

	st.SetToken(ledger.TokenAccount{Address: license, Mint: s.licenseMint, Owner: groupKey})
	return st.TransferTokens(depositing, license, groupKey, licenseDepositAmount)
}

func (s *Simulator) closeWorkGroup(st *memory.State, ix memory.Instruction) error {
	var args CloseWorkGroupArgs
	if err := decodeInstruction(InstructionCloseWorkGroup, ix.Data, &args); err != nil {
		return err
	}
	payer, groupKey, license, withdrawing := ix.Account(0), ix.Account(1), ix.Account(3), ix.Account(4)
	group, err := s.loadGroup(st, ix, 1)
	if err != nil {
		return err
	}
	if !args.Force {
		switch {
		case len(group.Specs) > 0:
			return s.fail(st, ErrOrphanedSpecs)
		case len(group.Devices) > 0:
			return s.fail(st, ErrOrphanedDevices)
		case len(group.Deployments) > 0:
			return s.fail(st, ErrOrphanedDeployments)
		}
	}

	held, ok := st.Token(license)
	if ok && held.Amount > 0 {
		if err := st.TransferTokens(license, withdrawing, payer, held.Amount); err != nil {
			return err
		}
	}
	st.DeleteToken(license)
	st.DeleteAccount(groupKey)
	return nil
}

func (s *Simulator) registerDevice(st *memory.State, ix memory.Instruction) error {
	var args RegisterDeviceArgs
	if err := decodeInstruction(InstructionRegisterDevice, ix.Data, &args); err != nil {
		return err
	}
	deviceKey, license, groupKey := ix.Account(1), ix.Account(3), ix.Account(4)

	group, err := s.loadGroup(st, ix, 4)
	if err != nil {
		return err
	}
	if err := s.checkSeeds(st, deviceKey, func() (solana.PublicKey, error) {
		addr, err := s.pdas.Device(args.DeviceAuthority)
		return addr.Key, err
	}); err != nil {
		return err
	}

	held, _ := st.Token(license)
	if uint64(len(group.Devices))+1 > held.Amount*devicesPerLicenseToken {
		return s.fail(st, ErrInsufficientLicenseTokens)
	}

	device := Device{
		Status:          DeviceStatusRequested,
		DeviceAuthority: args.DeviceAuthority,
		WorkGroup:       groupKey,
	}
	if err := s.create(st, deviceKey, AccountDevice, &device); err != nil {
		return err
	}
	group.Devices = append(group.Devices, deviceKey)
	return s.store(st, groupKey, AccountWorkGroup, group)
}

func (s *Simulator) closeDevice(st *memory.State, ix memory.Instruction) error {
	deviceKey, groupKey := ix.Account(1), ix.Account(2)
	group, err := s.loadGroup(st, ix, 2)
	if err != nil {
		return err
	}
	var device Device
	if err := s.load(st, deviceKey, AccountDevice, &device); err != nil {
		return err
	}
	if !device.WorkGroup.Equals(groupKey) {
		return s.fail(st, errConstraintHasOne)
	}

	// Device slots are positional, so closed devices leave a placeholder.
	for i, k := range group.Devices {
		if k.Equals(deviceKey) {
			group.Devices[i] = solana.SystemProgramID
		}
	}
	st.DeleteAccount(deviceKey)
	return s.store(st, groupKey, AccountWorkGroup, group)
}

func (s *Simulator) createWorkSpec(st *memory.State, ix memory.Instruction) error {
	var args CreateWorkSpecArgs
	if err := decodeInstruction(InstructionCreateWorkSpec, ix.Data, &args); err != nil {
		return err
	}
	specKey, groupKey := ix.Account(1), ix.Account(2)

	group, err := s.loadGroup(st, ix, 2)
	if err != nil {
		return err
	}
	if err := s.checkSeeds(st, specKey, func() (solana.PublicKey, error) {
		addr, err := s.pdas.Spec(groupKey, args.SpecName)
		return addr.Key, err
	}); err != nil {
		return err
	}

	now := uint64(s.now().Unix())
	spec := WorkSpec{
		Name:           args.SpecName,
		WorkType:       args.WorkType,
		CreatedAt:      now,
		ModifiedAt:     now,
		URLOrContents:  args.URLOrContents,
		ContentsSha256: args.ContentsSha256,
		MetadataURL:    args.MetadataURL,
		Mutable:        args.Mutable,
	}
	if err := s.create(st, specKey, AccountWorkSpec, &spec); err != nil {
		return err
	}
	group.Specs = append(group.Specs, specKey)
	return s.store(st, groupKey, AccountWorkGroup, group)
}

func (s *Simulator) closeWorkSpec(st *memory.State, ix memory.Instruction) error {
	specKey, groupKey := ix.Account(1), ix.Account(2)
	group, err := s.loadGroup(st, ix, 2)
	if err != nil {
		return err
	}
	var spec WorkSpec
	if err := s.load(st, specKey, AccountWorkSpec, &spec); err != nil {
		return err
	}

	group.Specs = removeKey(group.Specs, specKey)
	st.DeleteAccount(specKey)
	return s.store(st, groupKey, AccountWorkGroup, group)
}

func (s *Simulator) createDeployment(st *memory.State, ix memory.Instruction) error {
	var args CreateDeploymentArgs
	if err := decodeInstruction(InstructionCreateDeployment, ix.Data, &args); err != nil {
		return err
	}
	deploymentKey, specKey, mint, tokens, groupKey := ix.Account(1), ix.Account(2), ix.Account(3), ix.Account(4), ix.Account(5)

	group, err := s.loadGroup(st, ix, 5)
	if err != nil {
		return err
	}
	var spec WorkSpec
	if err := s.load(st, specKey, AccountWorkSpec, &spec); err != nil {
		return err
	}
	addr, err := s.pdas.Deployment(groupKey, args.Name)
	if err != nil || !addr.Key.Equals(deploymentKey) {
		return s.fail(st, errConstraintSeeds)
	}

	deployment := Deployment{
		Spec:           specKey,
		Name:           args.Name,
		Replicas:       args.Replicas,
		DeploymentBump: addr.Bump,
	}
	if m, err := s.pdas.DeploymentMint(deploymentKey); err == nil {
		deployment.MintBump = m.Bump
	}
	if t, err := s.pdas.DeploymentTokens(deploymentKey); err == nil {
		deployment.TokensBump = t.Bump
	}
	if err := s.create(st, deploymentKey, AccountDeployment, &deployment); err != nil {
		return err
	}

	st.SetToken(ledger.TokenAccount{Address: tokens, Mint: mint, Owner: deploymentKey, Amount: uint64(args.Replicas)})
	group.Deployments = append(group.Deployments, deploymentKey)
	return s.store(st, groupKey, AccountWorkGroup, group)
}

func (s *Simulator) closeDeployment(st *memory.State, ix memory.Instruction) error {
	deploymentKey, tokens, groupKey := ix.Account(1), ix.Account(3), ix.Account(4)
	group, err := s.loadGroup(st, ix, 4)
	if err != nil {
		return err
	}
	var deployment Deployment
	if err := s.load(st, deploymentKey, AccountDeployment, &deployment); err != nil {
		return err
	}

	group.Deployments = removeKey(group.Deployments, deploymentKey)
	st.DeleteToken(tokens)
	st.DeleteAccount(deploymentKey)
	return s.store(st, groupKey, AccountWorkGroup, group)
}

func (s *Simulator) schedule(st *memory.State, ix memory.Instruction) error {
	var args ScheduleArgs
	if err := decodeInstruction(InstructionSchedule, ix.Data, &args); err != nil {
		return err
	}
	deploymentKey, tokens, deviceKey, deviceAuthority, deviceTokens := ix.Account(2), ix.Account(4), ix.Account(5), ix.Account(6), ix.Account(7)

	if _, err := s.loadGroup(st, ix, 1); err != nil {
		return err
	}
	var deployment Deployment
	if err := s.load(st, deploymentKey, AccountDeployment, &deployment); err != nil {
		return err
	}
	var device Device
	if err := s.load(st, deviceKey, AccountDevice, &device); err != nil {
		return err
	}
	if !device.DeviceAuthority.Equals(deviceAuthority) {
		return s.fail(st, errConstraintSeeds)
	}

	available, _ := st.Token(tokens)
	if uint64(args.Replicas) > available.Amount {
		return s.fail(st, ErrInsufficientReplicaTokens)
	}
	return st.TransferTokens(tokens, deviceTokens, deviceAuthority, uint64(args.Replicas))
}

func removeKey(keys []solana.PublicKey, key solana.PublicKey) []solana.PublicKey {
	out := keys[:0]
	for _, k := range keys {
		if !k.Equals(key) {
			out = append(out, k)
		}
	}
	return out
}
