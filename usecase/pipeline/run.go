package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/securebackend/sbops/domain/model"
	"github.com/securebackend/sbops/internal/logging"
	"github.com/securebackend/sbops/internal/naming"
	"github.com/securebackend/sbops/usecase/backend"
	"github.com/securebackend/sbops/usecase/cluster"
	"github.com/securebackend/sbops/usecase/dns"
	"github.com/securebackend/sbops/usecase/frontend"
	"github.com/securebackend/sbops/usecase/health"
	"github.com/securebackend/sbops/usecase/image"
)

// RunInput configures a pipeline run.
type RunInput struct {
	BackendID   string   `json:"backend_id"`
	FrontendID  string   `json:"frontend_id,omitempty"`
	Environment string   `json:"environment,omitempty"`
	Skip        []string `json:"skip,omitempty"`
	// Tag overrides the configured image tags.
	Tag string `json:"tag,omitempty"`
	// Force re-applies the deployment stack and reinstalls add-ons.
	Force bool `json:"force,omitempty"`
	// Strict fails the run when the final health check is unhealthy.
	Strict bool `json:"strict,omitempty"`
}

// RunOutput is the recorded run plus the values resolved along the way.
type RunOutput struct {
	Run      *model.Run              `json:"run"`
	Endpoint *backend.EndpointOutput `json:"endpoint,omitempty"`
	Health   *model.HealthResult     `json:"health,omitempty"`
	Frontend *frontend.DeployOutput  `json:"frontend,omitempty"`
	Images   []string                `json:"images,omitempty"`
	DNS      []dns.DNSRecordResult   `json:"dns,omitempty"`
}

// errSkip marks a step that decided not to run.
type errSkip struct{ reason string }

func (e *errSkip) Error() string { return e.reason }

func skip(reason string) error { return &errSkip{reason: reason} }

// ValidateSkip rejects unknown step names.
func ValidateSkip(names []string) error {
	for _, n := range names {
		if !slices.Contains(Steps, n) {
			return fmt.Errorf("unknown step %q (valid: %v)", n, Steps)
		}
	}
	return nil
}

// Run executes the steps in order and stops at the first failure. Every
// step outcome is persisted to the run repository as it completes.
func (u *UseCase) Run(ctx context.Context, in *RunInput) (*RunOutput, error) {
	if in == nil || in.BackendID == "" {
		return nil, fmt.Errorf("BackendID is required")
	}
	if err := ValidateSkip(in.Skip); err != nil {
		return nil, err
	}
	b, err := u.Repos.Backend.Get(ctx, in.BackendID)
	if err != nil {
		return nil, err
	}
	id, err := naming.NewRunID()
	if err != nil {
		return nil, err
	}
	run := &model.Run{
		ID:          id,
		Environment: in.Environment,
		BackendID:   b.ID,
		Status:      model.RunStatusRunning,
		StartedAt:   u.now(),
	}
	if err := u.Repos.Run.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}
	logger := logging.FromContext(ctx).With("run", run.ID, "backend", b.Name)
	ctx = logging.WithLogger(ctx, logger)
	out := &RunOutput{Run: run}

	webapp := b.Target == model.BackendTargetWebApp
	steps := []struct {
		name string
		fn   func(ctx context.Context) (string, error)
	}{
		{StepProvision, func(ctx context.Context) (string, error) {
			if webapp {
				return "", skip("backend target is webapp")
			}
			res, err := u.Cluster.Provision(ctx, &cluster.ProvisionInput{ClusterID: b.ClusterID, Force: in.Force})
			if err != nil {
				return "", err
			}
			if res.Skipped {
				return "", skip(res.Reason)
			}
			return "cluster provisioned", nil
		}},
		{StepAttach, func(ctx context.Context) (string, error) {
			if webapp {
				return "", skip("backend target is webapp")
			}
			return "registry attached", u.Cluster.AttachRegistry(ctx, &cluster.AttachRegistryInput{ClusterID: b.ClusterID, RegistryID: b.RegistryID})
		}},
		{StepInstall, func(ctx context.Context) (string, error) {
			if webapp {
				return "", skip("backend target is webapp")
			}
			return "add-ons installed", u.Cluster.Install(ctx, &cluster.InstallInput{ClusterID: b.ClusterID, Force: in.Force})
		}},
		{StepImage, func(ctx context.Context) (string, error) {
			targets := []image.Target{{BackendID: b.ID, Tag: in.Tag}}
			if in.FrontendID != "" {
				targets = append(targets, image.Target{FrontendID: in.FrontendID, Tag: in.Tag})
			}
			for _, t := range targets {
				res, err := u.Image.BuildPush(ctx, &image.BuildPushInput{Target: t})
				if err != nil {
					return "", err
				}
				out.Images = append(out.Images, res.Reference)
			}
			return fmt.Sprintf("pushed %v", out.Images), nil
		}},
		{StepBackend, func(ctx context.Context) (string, error) {
			res, err := u.Backend.Deploy(ctx, &backend.DeployInput{BackendID: b.ID, Tag: in.Tag})
			if err != nil {
				return "", err
			}
			return "deployed " + res.Image, nil
		}},
		{StepWait, func(ctx context.Context) (string, error) {
			if webapp {
				return "", skip("backend target is webapp")
			}
			return "deployment available", u.Backend.Wait(ctx, &backend.WaitInput{BackendID: b.ID})
		}},
		{StepEndpoint, func(ctx context.Context) (string, error) {
			res, err := u.Backend.Endpoint(ctx, &backend.EndpointInput{BackendID: b.ID})
			if err != nil {
				return "", err
			}
			out.Endpoint = res
			return res.Address, nil
		}},
		{StepDNS, func(ctx context.Context) (string, error) {
			if webapp || !b.DNS {
				return "", skip("dns management disabled")
			}
			din := &dns.DeployInput{BackendID: b.ID, Strict: true}
			if out.Endpoint != nil {
				din.Address = out.Endpoint.Address
			}
			res, err := u.DNS.Deploy(ctx, din)
			if err != nil {
				return "", err
			}
			out.DNS = res.Applied
			return res.Applied[0].Message, nil
		}},
		{StepFrontend, func(ctx context.Context) (string, error) {
			if in.FrontendID == "" {
				return "", skip("no frontend configured")
			}
			fin := &frontend.DeployInput{FrontendID: in.FrontendID, Tag: in.Tag}
			if b.Host != "" {
				fin.BackendID = b.ID
			} else if out.Endpoint != nil {
				fin.BackendURL = out.Endpoint.URL
			}
			res, err := u.Frontend.Deploy(ctx, fin)
			if err != nil {
				return "", err
			}
			out.Frontend = res
			return res.WebApp.DefaultHostName, nil
		}},
		{StepHealth, func(ctx context.Context) (string, error) {
			hin := &health.CheckInput{BackendID: b.ID, Strict: in.Strict}
			if b.Host == "" && out.Endpoint != nil {
				hin.URL = out.Endpoint.URL + b.HealthPath
			}
			res, err := u.Health.Check(ctx, hin)
			if res != nil {
				out.Health = &res.HealthResult
			}
			if err != nil {
				return "", err
			}
			if !res.Healthy {
				return "", &unhealthy{res.URL, res.StatusCode, res.Error}
			}
			return fmt.Sprintf("%d in %s", res.StatusCode, res.Latency), nil
		}},
	}

	for _, s := range steps {
		if slices.Contains(in.Skip, s.name) {
			u.record(ctx, run, model.RunStep{Name: s.name, Status: model.RunStatusSkipped, Message: "skipped by request"})
			logger.Info(ctx, "PIPE:"+s.name+"/SKIP", "reason", "requested")
			continue
		}
		step := model.RunStep{Name: s.name, Status: model.RunStatusRunning, StartedAt: u.now()}
		logger.Info(ctx, "PIPE:"+s.name+"/S")
		msg, err := s.fn(ctx)
		step.FinishedAt = u.now()

		var sk *errSkip
		var uh *unhealthy
		switch {
		case errors.As(err, &sk):
			step.Status = model.RunStatusSkipped
			step.Message = sk.reason
			logger.Info(ctx, "PIPE:"+s.name+"/SKIP", "reason", sk.reason)
		case errors.As(err, &uh):
			// An unhealthy endpoint is reported without failing the run.
			step.Status = model.RunStatusFailed
			step.Error = uh.Error()
			logger.Warn(ctx, "PIPE:"+s.name+"/EFAIL", "err", uh.Error())
		case err != nil:
			step.Status = model.RunStatusFailed
			step.Error = err.Error()
			u.record(ctx, run, step)
			logger.Error(ctx, "PIPE:"+s.name+"/EFAIL", "err", err)
			u.finish(ctx, run, fmt.Errorf("step %s: %w", s.name, err))
			return out, fmt.Errorf("step %s: %w", s.name, err)
		default:
			step.Status = model.RunStatusSucceeded
			step.Message = msg
			logger.Info(ctx, "PIPE:"+s.name+"/EOK", "msg", msg)
		}
		u.record(ctx, run, step)
	}
	u.finish(ctx, run, nil)
	return out, nil
}

type unhealthy struct {
	url    string
	status int
	reason string
}

func (e *unhealthy) Error() string {
	if e.reason != "" {
		return fmt.Sprintf("%s unhealthy: %s", e.url, e.reason)
	}
	return fmt.Sprintf("%s unhealthy: status %d", e.url, e.status)
}

// record appends step and persists the run. Persistence failures are logged
// so that they never mask the step outcome.
func (u *UseCase) record(ctx context.Context, run *model.Run, step model.RunStep) {
	run.Steps = append(run.Steps, step)
	if err := u.Repos.Run.Update(context.WithoutCancel(ctx), run); err != nil {
		logging.FromContext(ctx).Warn(ctx, "failed to persist run", "err", err)
	}
}

func (u *UseCase) finish(ctx context.Context, run *model.Run, err error) {
	run.FinishedAt = u.now()
	run.Status = model.RunStatusSucceeded
	if err != nil {
		run.Status = model.RunStatusFailed
		run.Error = err.Error()
	}
	if err := u.Repos.Run.Update(context.WithoutCancel(ctx), run); err != nil {
		logging.FromContext(ctx).Warn(ctx, "failed to persist run", "err", err)
	}
	logging.FromContext(ctx).Info(ctx, "run finished", "status", run.Status, "elapsed", run.Duration().String())
}
