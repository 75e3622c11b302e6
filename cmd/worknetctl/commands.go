package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/pflag"

	"github.com/workbenchapp/worknet-proposer/internal/derive"
	"github.com/workbenchapp/worknet-proposer/internal/domain"
	"github.com/workbenchapp/worknet-proposer/internal/worknet"
)

func commands() []*command {
	var (
		description string
		name        string
		deposit     string
		deviceKey   string
		specURL     string
		metadataURL string
		specName    string
		replicas    int
		limit       int
		offset      int
		program     string
	)
	descriptionFlag := func(fs *pflag.FlagSet) {
		fs.StringVar(&description, "description", "", "proposal description link")
	}

	return []*command{
		{
			name:    "workgroup create",
			args:    []string{"identifier"},
			summary: "create a work group funded with license tokens",
			flags: func(fs *pflag.FlagSet) {
				fs.StringVar(&name, "name", "", "display name of the group")
				fs.StringVar(&deposit, "deposit", "", "license token account to deposit from (default: first funded account)")
				descriptionFlag(fs)
			},
			run: func(ctx context.Context, e *env, args []string) error {
				return printResult(e.out)(e.app.Service.CreateWorkGroup(ctx, &domain.CreateWorkGroupRequest{
					Identifier:     args[0],
					Name:           name,
					DepositAccount: deposit,
					DescriptionURL: description,
				}))
			},
		},
		{
			name:    "workgroup close",
			args:    []string{"identifier"},
			summary: "close a work group and return its license tokens",
			flags:   descriptionFlag,
			run: func(ctx context.Context, e *env, args []string) error {
				return printResult(e.out)(e.app.Service.CloseWorkGroup(ctx, args[0], &domain.CloseRequest{DescriptionURL: description}))
			},
		},
		{
			name:    "workgroup show",
			args:    []string{"identifier"},
			summary: "read a work group from the ledger",
			run: func(ctx context.Context, e *env, args []string) error {
				group, err := e.app.Service.GetWorkGroup(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(e.out, group)
			},
		},
		{
			name:    "device register",
			args:    []string{"identifier"},
			summary: "register a device (default: the local agent's device wallet)",
			flags: func(fs *pflag.FlagSet) {
				fs.StringVar(&deviceKey, "device", "", "device authority key")
				descriptionFlag(fs)
			},
			run: func(ctx context.Context, e *env, args []string) error {
				return printResult(e.out)(e.app.Service.RegisterDevice(ctx, args[0], &domain.RegisterDeviceRequest{DeviceKey: deviceKey, DescriptionURL: description}))
			},
		},
		{
			name:    "device close",
			args:    []string{"identifier", "device"},
			summary: "remove a device from a work group",
			flags:   descriptionFlag,
			run: func(ctx context.Context, e *env, args []string) error {
				return printResult(e.out)(e.app.Service.CloseDevice(ctx, args[0], args[1], &domain.CloseRequest{DescriptionURL: description}))
			},
		},
		{
			name:    "device list",
			args:    []string{"identifier"},
			summary: "list the devices of a work group",
			run: func(ctx context.Context, e *env, args []string) error {
				devices, err := e.app.Service.ListDevices(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(e.out, devices)
			},
		},
		{
			name:    "spec create",
			args:    []string{"identifier", "name"},
			summary: "create a spec from a docker-compose URL",
			flags: func(fs *pflag.FlagSet) {
				fs.StringVar(&specURL, "url", "", "URL of the compose file")
				fs.StringVar(&metadataURL, "metadata-url", "", "URL of the spec metadata")
				descriptionFlag(fs)
			},
			run: func(ctx context.Context, e *env, args []string) error {
				return printResult(e.out)(e.app.Service.CreateSpec(ctx, args[0], &domain.CreateSpecRequest{
					Name:           args[1],
					URL:            specURL,
					MetadataURL:    metadataURL,
					DescriptionURL: description,
				}))
			},
		},
		{
			name:    "spec close",
			args:    []string{"identifier", "name"},
			summary: "remove a spec from a work group",
			flags:   descriptionFlag,
			run: func(ctx context.Context, e *env, args []string) error {
				return printResult(e.out)(e.app.Service.CloseSpec(ctx, args[0], args[1], &domain.CloseRequest{DescriptionURL: description}))
			},
		},
		{
			name:    "spec list",
			args:    []string{"identifier"},
			summary: "list the specs of a work group",
			run: func(ctx context.Context, e *env, args []string) error {
				specs, err := e.app.Service.ListSpecs(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(e.out, specs)
			},
		},
		{
			name:    "deployment create",
			args:    []string{"identifier", "name"},
			summary: "create a deployment of a spec",
			flags: func(fs *pflag.FlagSet) {
				fs.StringVar(&specName, "spec", "", "spec to deploy")
				fs.IntVar(&replicas, "replicas", 1, "number of replicas")
				descriptionFlag(fs)
			},
			run: func(ctx context.Context, e *env, args []string) error {
				return printResult(e.out)(e.app.Service.CreateDeployment(ctx, args[0], &domain.CreateDeploymentRequest{
					Name:           args[1],
					SpecName:       specName,
					Replicas:       replicas,
					DescriptionURL: description,
				}))
			},
		},
		{
			name:    "deployment close",
			args:    []string{"identifier", "name"},
			summary: "remove a deployment from a work group",
			flags:   descriptionFlag,
			run: func(ctx context.Context, e *env, args []string) error {
				return printResult(e.out)(e.app.Service.CloseDeployment(ctx, args[0], args[1], &domain.CloseRequest{DescriptionURL: description}))
			},
		},
		{
			name:    "deployment schedule",
			args:    []string{"identifier", "name"},
			summary: "schedule one replica of a deployment on a device",
			flags: func(fs *pflag.FlagSet) {
				fs.StringVar(&deviceKey, "device", "", "device authority key")
				descriptionFlag(fs)
			},
			run: func(ctx context.Context, e *env, args []string) error {
				return printResult(e.out)(e.app.Service.ScheduleDeployment(ctx, args[0], args[1], &domain.ScheduleDeploymentRequest{DeviceKey: deviceKey, DescriptionURL: description}))
			},
		},
		{
			name:    "deployment list",
			args:    []string{"identifier"},
			summary: "list the deployments of a work group",
			run: func(ctx context.Context, e *env, args []string) error {
				deployments, err := e.app.Service.ListDeployments(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(e.out, deployments)
			},
		},
		{
			name:    "proposer",
			summary: "show the active proposer and payer",
			run: func(ctx context.Context, e *env, args []string) error {
				info, err := e.app.Service.ProposerInfo(ctx)
				if err != nil {
					return err
				}
				return printJSON(e.out, info)
			},
		},
		{
			name:    "submissions",
			summary: "list journaled submissions, newest first",
			flags: func(fs *pflag.FlagSet) {
				fs.IntVar(&limit, "limit", 20, "maximum number of entries")
				fs.IntVar(&offset, "offset", 0, "entries to skip")
			},
			run: func(ctx context.Context, e *env, args []string) error {
				subs, err := e.app.Store.ListSubmissions(ctx, limit, offset)
				if err != nil {
					return err
				}
				return printJSON(e.out, subs)
			},
		},
		{
			name:    "derive",
			args:    []string{"seeds"},
			summary: "print the address derived from comma separated seeds (text, or key:<base58>)",
			offline: true,
			flags: func(fs *pflag.FlagSet) {
				fs.StringVar(&program, "program", worknet.DefaultProgramID.String(), "program that owns the address")
			},
			run: func(ctx context.Context, e *env, args []string) error {
				programID, err := solana.PublicKeyFromBase58(program)
				if err != nil {
					return fmt.Errorf("invalid program: %w", err)
				}
				seeds, err := parseSeeds(args[0])
				if err != nil {
					return err
				}
				addr, err := derive.Derive(programID, seeds...)
				if err != nil {
					return err
				}
				return printJSON(e.out, addr)
			},
		},
	}
}

// parseSeeds splits a comma separated seed list. A "key:" prefix marks a
// base58 public key; anything else is a UTF-8 string.
func parseSeeds(list string) ([][]byte, error) {
	var seeds [][]byte
	for _, s := range strings.Split(list, ",") {
		if k, ok := strings.CutPrefix(s, "key:"); ok {
			key, err := solana.PublicKeyFromBase58(k)
			if err != nil {
				return nil, fmt.Errorf("seed %q: %w", s, err)
			}
			seeds = append(seeds, derive.Key(key))
			continue
		}
		seeds = append(seeds, derive.Str(s))
	}
	return seeds, nil
}
