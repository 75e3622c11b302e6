package worknet

import (
	"github.com/gagliardetto/solana-go"
)

// builder assembles raw worknet instructions from already-derived addresses.
type builder struct {
	program     solana.PublicKey
	licenseMint solana.PublicKey
}

func (b builder) instruction(name string, args any, accounts ...*solana.AccountMeta) (solana.Instruction, error) {
	data, err := encodeInstruction(name, args)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(b.program, accounts, data), nil
}

func authority(k solana.PublicKey) *solana.AccountMeta {
	return solana.Meta(k).WRITE().SIGNER()
}

func (b builder) createWorkGroup(payer, group, groupLicense, depositing solana.PublicKey, args CreateWorkGroupArgs) (solana.Instruction, error) {
	return b.instruction(InstructionCreateWorkGroup, args,
		authority(payer),
		solana.Meta(group).WRITE(),
		solana.Meta(b.licenseMint),
		solana.Meta(groupLicense).WRITE(),
		solana.Meta(depositing).WRITE(),
		solana.Meta(solana.SysVarRentPubkey),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SystemProgramID),
	)
}

func (b builder) closeWorkGroup(payer, group, groupLicense, withdrawing solana.PublicKey) (solana.Instruction, error) {
	return b.instruction(InstructionCloseWorkGroup, CloseWorkGroupArgs{Force: true},
		authority(payer),
		solana.Meta(group).WRITE(),
		solana.Meta(b.licenseMint),
		solana.Meta(groupLicense).WRITE(),
		solana.Meta(withdrawing).WRITE(),
		solana.Meta(solana.SysVarRentPubkey),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SystemProgramID),
	)
}

func (b builder) registerDevice(payer, device, groupLicense, group, deviceKey solana.PublicKey) (solana.Instruction, error) {
	return b.instruction(InstructionRegisterDevice, RegisterDeviceArgs{DeviceAuthority: deviceKey},
		authority(payer),
		solana.Meta(device).WRITE(),
		solana.Meta(b.licenseMint),
		solana.Meta(groupLicense),
		solana.Meta(group).WRITE(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
	)
}

func (b builder) closeDevice(payer, device, group solana.PublicKey) (solana.Instruction, error) {
	return b.instruction(InstructionCloseDevice, nil,
		authority(payer),
		solana.Meta(device).WRITE(),
		solana.Meta(group).WRITE(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
	)
}

func (b builder) createWorkSpec(payer, spec, group solana.PublicKey, args CreateWorkSpecArgs) (solana.Instruction, error) {
	return b.instruction(InstructionCreateWorkSpec, args,
		authority(payer),
		solana.Meta(spec).WRITE(),
		solana.Meta(group).WRITE(),
		solana.Meta(solana.SystemProgramID),
	)
}

func (b builder) closeWorkSpec(payer, spec, group solana.PublicKey) (solana.Instruction, error) {
	return b.instruction(InstructionCloseWorkSpec, nil,
		authority(payer),
		solana.Meta(spec).WRITE(),
		solana.Meta(group).WRITE(),
		solana.Meta(solana.SystemProgramID),
	)
}

func (b builder) createDeployment(payer, deployment, spec, mint, tokens, group solana.PublicKey, args CreateDeploymentArgs) (solana.Instruction, error) {
	return b.instruction(InstructionCreateDeployment, args,
		authority(payer),
		solana.Meta(deployment).WRITE(),
		solana.Meta(spec),
		solana.Meta(mint).WRITE(),
		solana.Meta(tokens).WRITE(),
		solana.Meta(group).WRITE(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SysVarRentPubkey),
	)
}

func (b builder) closeDeployment(payer, deployment, mint, tokens, group solana.PublicKey) (solana.Instruction, error) {
	return b.instruction(InstructionCloseDeployment, nil,
		authority(payer),
		solana.Meta(deployment).WRITE(),
		solana.Meta(mint).WRITE(),
		solana.Meta(tokens).WRITE(),
		solana.Meta(group).WRITE(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SysVarRentPubkey),
	)
}

func (b builder) schedule(payer, group, deployment, mint, tokens, device, deviceKey, deviceTokens solana.PublicKey) (solana.Instruction, error) {
	return b.instruction(InstructionSchedule, ScheduleArgs{Replicas: scheduleReplicasPerCall},
		authority(payer),
		solana.Meta(group),
		solana.Meta(deployment),
		solana.Meta(mint),
		solana.Meta(tokens).WRITE(),
		solana.Meta(device),
		solana.Meta(deviceKey),
		solana.Meta(deviceTokens).WRITE(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SysVarRentPubkey),
	)
}
