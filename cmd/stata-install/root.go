package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	adapters "github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain-adapters/gateways"
	orchestrators "github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain-orchestrators"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/entities"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/interfaces/gateways"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/domain/services"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/external-adapters/logging"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/external-adapters/secrets"
	"github.com/ivy-aw-lin/ECO375-Project-Phase2/internal/external-adapters/yaml"
)

const (
	installSourceFlag = "install-source"
	licenseSourceFlag = "license-source"
	editionFlag       = "edition"
	versionFlag       = "version"
	noUpgradeFlag     = "no-upgrade"
	interactiveFlag   = "interactive"
	installAgeFlag    = "install-age"
	addFlag           = "add"
	profileFlag       = "profile"
	workdirFlag       = "workdir"
	logLevelFlag      = "log-level"
	logFileFlag       = "log-file"
)

// options holds the raw command-line values
type options struct {
	installSource string
	licenseSource string
	edition       string
	version       int
	noUpgrade     bool
	interactive   bool
	installAge    bool
	addons        []string
	profilePath   string
	workDir       string
	logLevel      string
	logFile       string
}

// config validates the flags; trailing positional arguments are add-on names
func (o *options) config(args []string) (entities.InstallConfig, error) {
	addons := append(append([]string(nil), o.addons...), args...)
	return entities.NewInstallConfig(entities.InstallConfigInput{
		InstallSource:      o.installSource,
		LicenseSource:      o.licenseSource,
		Edition:            o.edition,
		Version:            o.version,
		SkipUpgrade:        o.noUpgrade,
		InteractiveLicense: o.interactive,
		InstallAgeTool:     o.installAge,
		Addons:             addons,
	})
}

func (o *options) workingDir() (string, error) {
	if o.workDir != "" {
		return o.workDir, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to determine working directory: %w", err)
	}
	return dir, nil
}

// app is everything a run needs, built once from the flags
type app struct {
	logger     *logging.Logger
	profile    *entities.Profile
	creds      *secrets.CredentialSet
	workingDir string
}

func (o *options) newApp(console io.Writer, env gateways.Environment, cfg entities.InstallConfig) (*app, error) {
	logger, err := logging.New(logging.Options{Level: o.logLevel, File: o.logFile, Console: console})
	if err != nil {
		return nil, entities.NewConfigurationError("invalid logging options", err)
	}

	a := &app{logger: logger}
	fail := func(err error) (*app, error) {
		_ = logger.Close()
		return nil, err
	}

	if a.workingDir, err = o.workingDir(); err != nil {
		return fail(err)
	}

	if a.profile, err = yaml.NewProfileRepository(o.profilePath).Load(); err != nil {
		return fail(err)
	}
	if err := yaml.CheckVersion(a.profile, cfg.Version); err != nil {
		return fail(err)
	}

	if a.creds, err = secrets.LoadCredentials(env); err != nil {
		return fail(err)
	}
	logger.Debug("Credentials found", interfaces.F("names", a.creds.String()))
	return a, nil
}

func (a *app) preflight() *services.PreflightService {
	return services.NewPreflightService(a.profile, a.creds, adapters.NewStdinTerminal(), a.logger)
}

// orchestrator wires the production gateways into the provisioning steps
func (a *app) orchestrator(console io.Writer) *orchestrators.ProvisionOrchestrator {
	runner := adapters.NewCommandRunner(a.logger)
	host := adapters.NewHost(runner)
	downloader := adapters.NewDownloader(a.logger, time.Duration(a.profile.Download.TimeoutMinutes)*time.Minute)
	acquisition := services.NewAcquisitionService(a.profile, downloader, adapters.NewCompositeDecrypter(),
		adapters.NewChecksumVerifier(), a.creds, a.logger)

	return orchestrators.NewProvisionOrchestrator(
		a.preflight(),
		services.NewDependencyResolver(a.profile, adapters.NewAptPackageManager(runner, a.logger), adapters.NewProcessLister(a.logger), a.logger),
		acquisition,
		services.NewInstallerRunner(a.profile, downloader, host, runner, a.logger),
		services.NewLicenseService(a.profile, acquisition, host, runner, a.creds, a.logger),
		services.NewFinalizer(a.profile, host, runner, a.logger),
		services.NewAddonInstaller(a.profile, acquisition, downloader, host, runner, a.creds, console, a.logger),
		a.logger,
	)
}

func newRootCmd(console io.Writer, env gateways.Environment) *cobra.Command {
	o := &options{}

	rootCmd := &cobra.Command{
		Use:   "stata-install [addons...]",
		Short: "Install and license Stata on a Debian-family host",
		Long: `Install Stata, apply its license, link it into PATH and optionally install add-ons.

Add-ons: ` + fmt.Sprint(services.AddonNames()) + `

Secrets are read from the environment: STATA_AGE_PRIVATE_KEY, STATA_LIC,
stata_serial, stata_code, stata_authorization, name, institution,
STATA_URL_BASE, STATA_URL_PW.`,
		Example: `  stata-install -i decrypt -l decrypt
  stata-install -i password -l env --edition mp --add requirements,setroot
  stata-install -i cache -l interactive --no-upgrade jupyter`,
		// positional arguments are add-on names, not subcommands
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config(args)
			if err != nil {
				return err
			}
			a, err := o.newApp(console, env, cfg)
			if err != nil {
				return err
			}
			//nolint:errcheck // Defer close on log file
			defer a.logger.Close()

			result, err := a.orchestrator(console).Provision(cmd.Context(), cfg, a.workingDir)
			if err != nil {
				a.logger.Error(result.GetProvisionSummary())
				return err
			}
			a.logger.Info(result.GetProvisionSummary())
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.VarP(newEnumValue(&o.installSource, entities.AllInstallSources(), false), installSourceFlag, "i", "where the installer comes from")
	flags.VarP(newEnumValue(&o.licenseSource, entities.AllLicenseSources(), false), licenseSourceFlag, "l", "where the license comes from")
	o.edition = string(entities.DefaultEdition)
	flags.Var(newEnumValue(&o.edition, entities.AllEditions(), true), editionFlag, "Stata edition")
	flags.IntVar(&o.version, versionFlag, entities.DefaultVersion, "Stata major version")
	flags.BoolVar(&o.noUpgrade, noUpgradeFlag, false, "skip the minor-version upgrade")
	flags.BoolVar(&o.interactive, interactiveFlag, false, "accepted for compatibility; use --license-source interactive")
	flags.BoolVar(&o.installAge, installAgeFlag, false, "install the age package even if no source needs it")
	flags.StringSliceVar(&o.addons, addFlag, nil, "add-ons to install (repeatable or comma separated)")
	flags.StringVar(&o.profilePath, profileFlag, "", "YAML profile overriding the built-in paths and URLs")
	flags.StringVar(&o.workDir, workdirFlag, "", "working directory for stata.log and stata.lic.encrypted (default: current directory)")
	flags.StringVar(&o.logLevel, logLevelFlag, "info", "log level: trace, debug, info, warn, error")
	flags.StringVar(&o.logFile, logFileFlag, "", "also write a rotating plain-text log to this file")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return entities.NewConfigurationError(err.Error(), nil)
	})
	rootCmd.SetOut(console)

	rootCmd.AddCommand(newCheckCmd(o, console, env))
	return rootCmd
}
