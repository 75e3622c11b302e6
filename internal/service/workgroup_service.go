package service

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/gagliardetto/solana-go"
	"github.com/go-logr/logr"

	"github.com/workbenchapp/worknet-proposer/internal/agent"
	"github.com/workbenchapp/worknet-proposer/internal/compose"
	"github.com/workbenchapp/worknet-proposer/internal/domain"
	"github.com/workbenchapp/worknet-proposer/internal/ledger"
	"github.com/workbenchapp/worknet-proposer/internal/proposer"
	"github.com/workbenchapp/worknet-proposer/internal/submit"
	"github.com/workbenchapp/worknet-proposer/internal/validation"
	"github.com/workbenchapp/worknet-proposer/internal/wallet"
	"github.com/workbenchapp/worknet-proposer/internal/worknet"
)

// Operation names, as shown in proposals and the submission journal.
const (
	OpCreateWorkGroup    = "Create Workgroup"
	OpCloseWorkGroup     = "Close Workgroup"
	OpRegisterDevice     = "Register Device"
	OpCloseDevice        = "Close Device"
	OpCreateSpec         = "Create Spec"
	OpCloseSpec          = "Close Spec"
	OpCreateDeployment   = "Create Deployment"
	OpCloseDeployment    = "Close Deployment"
	OpScheduleDeployment = "Schedule Deployment"
)

// Options wires a WorkgroupService. Agent may be nil, in which case device
// keys must always be given explicitly.
type Options struct {
	Factory        *worknet.Factory
	Accounts       *worknet.Accounts
	Proposer       proposer.Proposer
	Signer         wallet.Signer
	Pipeline       *submit.Pipeline
	Agent          *agent.Client
	DescriptionURL string
	Cluster        string
}

// WorkgroupService runs worknet operations: validate, build instructions,
// propose, sign and submit.
type WorkgroupService struct {
	factory        *worknet.Factory
	accounts       *worknet.Accounts
	proposer       proposer.Proposer
	signer         wallet.Signer
	pipeline       *submit.Pipeline
	agent          *agent.Client
	descriptionURL string
	cluster        string
}

// NewWorkgroupService creates a new WorkgroupService.
func NewWorkgroupService(opts Options) *WorkgroupService {
	return &WorkgroupService{
		factory:        opts.Factory,
		accounts:       opts.Accounts,
		proposer:       opts.Proposer,
		signer:         opts.Signer,
		pipeline:       opts.Pipeline,
		agent:          opts.Agent,
		descriptionURL: opts.DescriptionURL,
		cluster:        opts.Cluster,
	}
}

// operation is one worknet operation ready to run.
type operation struct {
	name        string
	subject     string
	description string
	build       func(payer solana.PublicKey) (*worknet.Built, error)
	// describe derives a description from the built operation when the
	// caller gave none and no default is configured.
	describe func(b *worknet.Built) string
}

// run proposes, signs and submits the instructions of op.
func (s *WorkgroupService) run(ctx context.Context, op operation) (*domain.SubmissionResult, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("operation", op.name, "subject", op.subject)

	payer, err := s.proposer.Payer(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving payer: %w", err)
	}
	b, err := op.build(payer)
	if err != nil {
		return nil, err
	}

	description := op.description
	if description == "" {
		description = s.descriptionURL
	}
	if description == "" && op.describe != nil {
		description = op.describe(b)
	}
	title := op.name + " " + op.subject
	details, err := s.proposer.ProposeTxn(ctx, b.Instructions, proposer.Verb(s.proposer.Kind(), title), description)
	if err != nil {
		return nil, fmt.Errorf("proposing %s: %w", op.name, err)
	}
	if err := s.signer.SignAll(details.Transactions); err != nil {
		return nil, fmt.Errorf("signing %s: %w", op.name, err)
	}
	log.V(1).Info("submitting", "transactions", len(details.Transactions), "kind", details.Kind)

	result, err := s.pipeline.Submit(ctx, title, details)
	if err != nil {
		return nil, err
	}
	result.Addresses = make(map[string]string, len(b.Addresses))
	for k, v := range b.Addresses {
		result.Addresses[k] = v.String()
	}
	return result, nil
}

func parseKey(errs *validation.ValidationErrors, field, value string) solana.PublicKey {
	if !errs.Check(field, value, validation.ValidatePublicKey(value)) {
		return solana.PublicKey{}
	}
	return solana.MustPublicKeyFromBase58(value)
}

func checkIdentifier(errs *validation.ValidationErrors, identifier string) {
	errs.Check("identifier", identifier, validation.ValidateIdentifier(identifier))
}

func checkURL(errs *validation.ValidationErrors, field, value string) {
	if value == "" {
		return
	}
	errs.Check(field, value, validation.ValidateURL(value))
}

// CreateWorkGroup creates a work group funded with the payer's license
// tokens.
func (s *WorkgroupService) CreateWorkGroup(ctx context.Context, req *domain.CreateWorkGroupRequest) (*domain.SubmissionResult, error) {
	var errs validation.ValidationErrors
	checkIdentifier(&errs, req.Identifier)
	errs.Check("name", req.Name, validation.ValidateGroupName(req.Name))
	var depositing solana.PublicKey
	if req.DepositAccount != "" {
		depositing = parseKey(&errs, "deposit_account", req.DepositAccount)
	}
	checkURL(&errs, "description_url", req.DescriptionURL)
	if errs.HasErrors() {
		return nil, errs
	}

	return s.run(ctx, operation{
		name:        OpCreateWorkGroup,
		subject:     req.Identifier,
		description: req.DescriptionURL,
		build: func(payer solana.PublicKey) (*worknet.Built, error) {
			return s.factory.CreateWorkGroup(ctx, payer, req.Identifier, req.Name, depositing)
		},
	})
}

// CloseWorkGroup closes a work group and returns its license tokens to the
// payer.
func (s *WorkgroupService) CloseWorkGroup(ctx context.Context, identifier string, req *domain.CloseRequest) (*domain.SubmissionResult, error) {
	var errs validation.ValidationErrors
	checkIdentifier(&errs, identifier)
	checkURL(&errs, "description_url", req.DescriptionURL)
	if errs.HasErrors() {
		return nil, errs
	}

	return s.run(ctx, operation{
		name:        OpCloseWorkGroup,
		subject:     identifier,
		description: req.DescriptionURL,
		build: func(payer solana.PublicKey) (*worknet.Built, error) {
			return s.factory.CloseWorkGroup(payer, identifier)
		},
	})
}

// RegisterDevice registers a device with a work group. Without a device key
// the local agent's device wallet is registered.
func (s *WorkgroupService) RegisterDevice(ctx context.Context, identifier string, req *domain.RegisterDeviceRequest) (*domain.SubmissionResult, error) {
	deviceKey := req.DeviceKey
	if deviceKey == "" && s.agent != nil {
		info, err := s.agent.Device(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("reading device key from agent: %w", err)
		}
		deviceKey = info.DeviceWallet
	}

	var errs validation.ValidationErrors
	checkIdentifier(&errs, identifier)
	device := parseKey(&errs, "device_key", deviceKey)
	checkURL(&errs, "description_url", req.DescriptionURL)
	if errs.HasErrors() {
		return nil, errs
	}

	return s.run(ctx, operation{
		name:        OpRegisterDevice,
		subject:     device.String(),
		description: req.DescriptionURL,
		build: func(payer solana.PublicKey) (*worknet.Built, error) {
			return s.factory.RegisterDevice(payer, identifier, device)
		},
	})
}

// CloseDevice removes a device from a work group.
func (s *WorkgroupService) CloseDevice(ctx context.Context, identifier, deviceKey string, req *domain.CloseRequest) (*domain.SubmissionResult, error) {
	var errs validation.ValidationErrors
	checkIdentifier(&errs, identifier)
	device := parseKey(&errs, "device_key", deviceKey)
	checkURL(&errs, "description_url", req.DescriptionURL)
	if errs.HasErrors() {
		return nil, errs
	}

	return s.run(ctx, operation{
		name:        OpCloseDevice,
		subject:     device.String(),
		description: req.DescriptionURL,
		build: func(payer solana.PublicKey) (*worknet.Built, error) {
			return s.factory.CloseDevice(payer, identifier, device)
		},
	})
}

// CreateSpec fetches the spec content, hashes it and proposes the spec.
// A compose document's services are used as the proposal description when
// none is given.
func (s *WorkgroupService) CreateSpec(ctx context.Context, identifier string, req *domain.CreateSpecRequest) (*domain.SubmissionResult, error) {
	var errs validation.ValidationErrors
	checkIdentifier(&errs, identifier)
	errs.Check("name", req.Name, validation.ValidateSpecName(req.Name))
	errs.Check("url", req.URL, validation.ValidateURL(req.URL))
	checkURL(&errs, "metadata_url", req.MetadataURL)
	checkURL(&errs, "description_url", req.DescriptionURL)
	if errs.HasErrors() {
		return nil, errs
	}

	log := logr.FromContextOrDiscard(ctx)
	return s.run(ctx, operation{
		name:        OpCreateSpec,
		subject:     req.Name,
		description: req.DescriptionURL,
		build: func(payer solana.PublicKey) (*worknet.Built, error) {
			return s.factory.CreateSpec(ctx, payer, identifier, req.Name, req.URL, req.MetadataURL)
		},
		describe: func(b *worknet.Built) string {
			services, err := compose.Parse(b.Content)
			if err != nil {
				log.Info("Warning: spec content is not a compose document", "spec", req.Name, "error", err.Error())
				return ""
			}
			return "services: " + compose.Summary(services)
		},
	})
}

// CloseSpec removes a spec from a work group.
func (s *WorkgroupService) CloseSpec(ctx context.Context, identifier, name string, req *domain.CloseRequest) (*domain.SubmissionResult, error) {
	var errs validation.ValidationErrors
	checkIdentifier(&errs, identifier)
	errs.Check("name", name, validation.ValidateSpecName(name))
	checkURL(&errs, "description_url", req.DescriptionURL)
	if errs.HasErrors() {
		return nil, errs
	}

	return s.run(ctx, operation{
		name:        OpCloseSpec,
		subject:     name,
		description: req.DescriptionURL,
		build: func(payer solana.PublicKey) (*worknet.Built, error) {
			return s.factory.CloseSpec(payer, identifier, name)
		},
	})
}

// CreateDeployment creates a deployment of a spec with the given number of
// replicas.
func (s *WorkgroupService) CreateDeployment(ctx context.Context, identifier string, req *domain.CreateDeploymentRequest) (*domain.SubmissionResult, error) {
	var errs validation.ValidationErrors
	checkIdentifier(&errs, identifier)
	errs.Check("name", req.Name, validation.ValidateDeploymentName(req.Name))
	errs.Check("spec_name", req.SpecName, validation.ValidateSpecName(req.SpecName))
	errs.Check("replicas", fmt.Sprint(req.Replicas), validation.ValidateReplicas(req.Replicas))
	checkURL(&errs, "description_url", req.DescriptionURL)
	if errs.HasErrors() {
		return nil, errs
	}

	return s.run(ctx, operation{
		name:        OpCreateDeployment,
		subject:     req.Name,
		description: req.DescriptionURL,
		build: func(payer solana.PublicKey) (*worknet.Built, error) {
			return s.factory.CreateDeployment(payer, identifier, req.SpecName, req.Name, uint8(req.Replicas))
		},
	})
}

// CloseDeployment removes a deployment from a work group.
func (s *WorkgroupService) CloseDeployment(ctx context.Context, identifier, name string, req *domain.CloseRequest) (*domain.SubmissionResult, error) {
	var errs validation.ValidationErrors
	checkIdentifier(&errs, identifier)
	errs.Check("name", name, validation.ValidateDeploymentName(name))
	checkURL(&errs, "description_url", req.DescriptionURL)
	if errs.HasErrors() {
		return nil, errs
	}

	return s.run(ctx, operation{
		name:        OpCloseDeployment,
		subject:     name,
		description: req.DescriptionURL,
		build: func(payer solana.PublicKey) (*worknet.Built, error) {
			return s.factory.CloseDeployment(payer, identifier, name)
		},
	})
}

// ScheduleDeployment assigns one replica of a deployment to a device.
func (s *WorkgroupService) ScheduleDeployment(ctx context.Context, identifier, name string, req *domain.ScheduleDeploymentRequest) (*domain.SubmissionResult, error) {
	var errs validation.ValidationErrors
	checkIdentifier(&errs, identifier)
	errs.Check("name", name, validation.ValidateDeploymentName(name))
	device := parseKey(&errs, "device_key", req.DeviceKey)
	checkURL(&errs, "description_url", req.DescriptionURL)
	if errs.HasErrors() {
		return nil, errs
	}

	return s.run(ctx, operation{
		name:        OpScheduleDeployment,
		subject:     name,
		description: req.DescriptionURL,
		build: func(payer solana.PublicKey) (*worknet.Built, error) {
			return s.factory.ScheduleDeployment(payer, identifier, name, device)
		},
	})
}

// ============================================
// Reads
// ============================================

func (s *WorkgroupService) loadGroup(ctx context.Context, identifier string) (solana.PublicKey, *worknet.WorkGroup, error) {
	if err := validation.ValidateIdentifier(identifier); err != nil {
		return solana.PublicKey{}, nil, validation.ValidationErrors{{Field: "identifier", Code: validation.CodeOf(err), Value: identifier, Message: err.Error()}}
	}
	return s.accounts.WorkGroup(ctx, identifier)
}

func keyStrings(keys []solana.PublicKey) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k.Equals(solana.SystemProgramID) {
			continue
		}
		out = append(out, k.String())
	}
	return out
}

// GetWorkGroup reads a work group. Closed entries are left out of its lists.
func (s *WorkgroupService) GetWorkGroup(ctx context.Context, identifier string) (*domain.WorkGroup, error) {
	addr, group, err := s.loadGroup(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return &domain.WorkGroup{
		Address:         addr.String(),
		Identifier:      group.Identifier,
		Name:            group.Name,
		GroupAuthority:  group.GroupAuthority.String(),
		SignalServerURL: group.SignalServerURL,
		Specs:           keyStrings(group.Specs),
		Devices:         keyStrings(group.Devices),
		Deployments:     keyStrings(group.Deployments),
	}, nil
}

// ListDevices reads every device of a work group.
func (s *WorkgroupService) ListDevices(ctx context.Context, identifier string) ([]*domain.Device, error) {
	_, group, err := s.loadGroup(ctx, identifier)
	if err != nil {
		return nil, err
	}
	devices := []*domain.Device{}
	for _, key := range group.Devices {
		if key.Equals(solana.SystemProgramID) {
			continue
		}
		d, err := s.accounts.Device(ctx, key)
		if err != nil {
			if errors.Is(err, ledger.ErrAccountNotFound) {
				continue
			}
			return nil, err
		}
		devices = append(devices, &domain.Device{
			Address:         key.String(),
			Hostname:        d.Hostname,
			IPv4:            net.IP(d.IPv4[:]).String(),
			Status:          d.Status.String(),
			DeviceAuthority: d.DeviceAuthority.String(),
			WorkGroup:       d.WorkGroup.String(),
		})
	}
	return devices, nil
}

// ListSpecs reads every spec of a work group.
func (s *WorkgroupService) ListSpecs(ctx context.Context, identifier string) ([]*domain.Spec, error) {
	_, group, err := s.loadGroup(ctx, identifier)
	if err != nil {
		return nil, err
	}
	specs := []*domain.Spec{}
	for _, key := range group.Specs {
		if key.Equals(solana.SystemProgramID) {
			continue
		}
		spec, err := s.accounts.Spec(ctx, key)
		if err != nil {
			if errors.Is(err, ledger.ErrAccountNotFound) {
				continue
			}
			return nil, err
		}
		specs = append(specs, &domain.Spec{
			Address:        key.String(),
			Name:           spec.Name,
			WorkType:       spec.WorkType.String(),
			URLOrContents:  spec.URLOrContents,
			ContentsSha256: spec.ContentsSha256,
			MetadataURL:    spec.MetadataURL,
			Mutable:        spec.Mutable,
			CreatedAt:      int64(spec.CreatedAt),
		})
	}
	return specs, nil
}

// ListDeployments reads every deployment of a work group with the number of
// replicas still waiting to be scheduled.
func (s *WorkgroupService) ListDeployments(ctx context.Context, identifier string) ([]*domain.Deployment, error) {
	addr, group, err := s.loadGroup(ctx, identifier)
	if err != nil {
		return nil, err
	}
	deployments := []*domain.Deployment{}
	for _, key := range group.Deployments {
		if key.Equals(solana.SystemProgramID) {
			continue
		}
		d, err := s.accounts.Deployment(ctx, key)
		if err != nil {
			if errors.Is(err, ledger.ErrAccountNotFound) {
				continue
			}
			return nil, err
		}
		unscheduled, err := s.accounts.UnscheduledReplicas(ctx, addr, d.Name)
		if err != nil && !errors.Is(err, ledger.ErrAccountNotFound) {
			return nil, err
		}
		deployments = append(deployments, &domain.Deployment{
			Address:     key.String(),
			Name:        d.Name,
			Spec:        d.Spec.String(),
			Replicas:    int(d.Replicas),
			Unscheduled: unscheduled,
		})
	}
	return deployments, nil
}

// ProposerInfo describes the active proposer.
func (s *WorkgroupService) ProposerInfo(ctx context.Context) (*domain.ProposerInfo, error) {
	payer, err := s.proposer.Payer(ctx)
	if err != nil {
		return nil, err
	}
	info := &domain.ProposerInfo{
		Kind:     string(s.proposer.Kind()),
		Governed: s.proposer.Kind() == proposer.KindGoverned,
		Wallet:   s.signer.PublicKey().String(),
		Payer:    payer.String(),
		Cluster:  s.cluster,
	}
	if g, ok := s.proposer.(*proposer.Governed); ok {
		info.Governance = g.Governance().String()
	}
	return info, nil
}

// Agent returns the device agent client, or nil when none is configured.
func (s *WorkgroupService) Agent() *agent.Client {
	return s.agent
}
