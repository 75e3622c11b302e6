package worknet

import (
	"fmt"
	"regexp"
	"strconv"
)

// ProgramError is a custom error returned by the worknet program.
type ProgramError struct {
	Code    uint32
	Name    string
	Message string
}

func (e ProgramError) Error() string {
	return fmt.Sprintf("%s (0x%x): %s", e.Name, e.Code, e.Message)
}

// Hex returns the code as it appears in program logs.
func (e ProgramError) Hex() string {
	return fmt.Sprintf("0x%x", e.Code)
}

var (
	ErrInsufficientLicenseTokens = ProgramError{6000, "InsufficentLicenseTokens", "You do not have enough license tokens to perform this operation. Please deposit more"}
	ErrInsufficientReplicaTokens = ProgramError{6001, "InsuffientReplicaTokens", "Not enough replica tokens in Deployment"}
	ErrOrphanedSpecs             = ProgramError{6002, "OrphanedSpecs", "Closing this work group would orphan specs"}
	ErrOrphanedDevices           = ProgramError{6003, "OrphanedDevices", "Closing this work group would orphan devices"}
	ErrOrphanedDeployments       = ProgramError{6004, "OrphanedDeployments", "Closing this work group would orphan deployments"}
)

var programErrors = map[uint32]ProgramError{
	ErrInsufficientLicenseTokens.Code: ErrInsufficientLicenseTokens,
	ErrInsufficientReplicaTokens.Code: ErrInsufficientReplicaTokens,
	ErrOrphanedSpecs.Code:             ErrOrphanedSpecs,
	ErrOrphanedDevices.Code:           ErrOrphanedDevices,
	ErrOrphanedDeployments.Code:       ErrOrphanedDeployments,
}

var customErrorPattern = regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`)

// LookupProgramError finds a known worknet error referenced in a log or
// error message.
func LookupProgramError(text string) (ProgramError, bool) {
	m := customErrorPattern.FindStringSubmatch(text)
	if m == nil {
		return ProgramError{}, false
	}
	code, err := strconv.ParseUint(m[1], 16, 32)
	if err != nil {
		return ProgramError{}, false
	}
	pe, ok := programErrors[uint32(code)]
	return pe, ok
}
