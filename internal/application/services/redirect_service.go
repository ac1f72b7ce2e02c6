package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"kilometers.ai/standin/internal/core/component"
	"kilometers.ai/standin/internal/core/descriptor"
	"kilometers.ai/standin/internal/core/launch"
	"kilometers.ai/standin/internal/core/ports"
	"kilometers.ai/standin/internal/core/redirect"
)

// ErrNoLauncher is returned when a launch is requested but the service was
// built without a host launcher
var ErrNoLauncher = errors.New("no host launcher configured")

// ErrResultsUntracked is returned when the host launcher does not track
// pending results
var ErrResultsUntracked = errors.New("host launcher does not track results")

// ManifestSource loads descriptor sets from a file or directory
type ManifestSource interface {
	LoadPath(ctx context.Context, path string) ([]descriptor.Set, error)
}

// HostLauncher is the combined host surface the service launches through
type HostLauncher interface {
	ports.Launcher
	ports.ResultLauncher
}

// ResultTracker is implemented by hosts that hold a request code until its
// result is delivered
type ResultTracker interface {
	Complete(requestCode int) bool
}

// LoadReport summarises a manifest load
type LoadReport struct {
	Paths       []string         `json:"paths"`
	Plugins     int              `json:"plugins"`
	Activities  int              `json:"activities"`
	NewBindings int              `json:"new_bindings"`
	Unreachable []component.Name `json:"unreachable,omitempty"`
}

// Resolution is where a class name currently redirects
type Resolution struct {
	ClassName string         `json:"class_name"`
	Logical   component.Name `json:"logical"`
	Physical  component.Name `json:"physical"`
}

// Conversion is the outcome of a convert. Request is the rewritten request
// when Handled, otherwise the original.
type Conversion struct {
	Handled  bool            `json:"handled"`
	Request  *launch.Request `json:"request"`
	Logical  *component.Name `json:"logical,omitempty"`
	Physical *component.Name `json:"physical,omitempty"`
}

// LaunchResult is the outcome of a launch
type LaunchResult struct {
	Handled     bool            `json:"handled"`
	Logical     *component.Name `json:"logical,omitempty"`
	Physical    *component.Name `json:"physical,omitempty"`
	RequestCode *int            `json:"request_code,omitempty"`
}

// RedirectService orchestrates manifest loading and request redirection
type RedirectService struct {
	registry  *redirect.Registry
	manifests ManifestSource
	host      HostLauncher
	logger    hclog.Logger
}

// NewRedirectService creates a new redirect service. host may be nil for
// read-only use.
func NewRedirectService(registry *redirect.Registry, manifests ManifestSource, host HostLauncher, logger hclog.Logger) *RedirectService {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &RedirectService{
		registry:  registry,
		manifests: manifests,
		host:      host,
		logger:    logger,
	}
}

// LoadManifests ingests every set found under paths, in order. Loading stops
// at the first failure; sets ingested before it stay ingested.
func (s *RedirectService) LoadManifests(ctx context.Context, paths ...string) (*LoadReport, error) {
	report := &LoadReport{Paths: paths}
	before := s.registry.Len()

	for _, path := range paths {
		sets, err := s.manifests.LoadPath(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to load manifests from %s: %w", path, err)
		}
		for _, set := range sets {
			if err := s.registry.Ingest(set); err != nil {
				return nil, fmt.Errorf("failed to ingest %s: %w", set.Namespace, err)
			}
			report.Plugins++
			report.Activities += len(set.Activities)
		}
	}

	report.NewBindings = s.registry.Len() - before
	report.Unreachable = s.registry.Unreachable()
	if len(report.Unreachable) > 0 {
		s.logger.Warn("class names shadowed by later plugins", "unreachable", len(report.Unreachable))
	}
	s.logger.Info("manifests loaded", "plugins", report.Plugins, "activities", report.Activities, "new_bindings", report.NewBindings)
	return report, nil
}

// Ingest records a single descriptor set
func (s *RedirectService) Ingest(set descriptor.Set) error {
	if err := set.Validate(); err != nil {
		return err
	}
	return s.registry.Ingest(set)
}

// Bindings returns every binding ordered by logical name
func (s *RedirectService) Bindings() []redirect.Binding {
	return s.registry.Bindings()
}

// Unreachable lists logical components shadowed by a later plugin
func (s *RedirectService) Unreachable() []component.Name {
	return s.registry.Unreachable()
}

// Resolve reports where className currently redirects
func (s *RedirectService) Resolve(className string) (Resolution, bool) {
	logical, physical, ok := s.registry.Resolve(className)
	if !ok {
		return Resolution{}, false
	}
	return Resolution{ClassName: className, Logical: logical, Physical: physical}, true
}

// Convert rewrites req without launching it
func (s *RedirectService) Convert(req *launch.Request) Conversion {
	env, ok := s.registry.Rewrite(req)
	if !ok {
		return Conversion{Request: req}
	}
	logical, physical := env.Logical, env.Physical()
	return Conversion{Handled: true, Request: env.Request, Logical: &logical, Physical: &physical}
}

// Launch redirects req and hands it to the host. A nil requestCode is a plain
// launch, otherwise a launch for result. Requests that are not plugin
// components are reported as not handled and never reach the host.
func (s *RedirectService) Launch(ctx context.Context, req *launch.Request, requestCode *int) (LaunchResult, error) {
	if s.host == nil {
		return LaunchResult{}, ErrNoLauncher
	}

	var (
		handled bool
		err     error
	)
	if requestCode == nil {
		handled, err = s.registry.Launch(ctx, s.host, req)
	} else {
		handled, err = s.registry.LaunchForResult(ctx, s.host, req, *requestCode)
	}

	result := LaunchResult{Handled: handled, RequestCode: requestCode}
	if !handled {
		return result, nil
	}

	// req.Target was qualified in place by the rewrite
	logical := *req.Target
	result.Logical = &logical
	if physical, ok := s.registry.Lookup(logical); ok {
		result.Physical = &physical
	}
	if err != nil {
		s.logger.Error("host launch failed", "logical", logical.String(), "error", err)
		return result, err
	}
	return result, nil
}

// CompleteResult tells the host the result for requestCode has been
// delivered, so the code can be used again. It reports whether the code was
// pending.
func (s *RedirectService) CompleteResult(requestCode int) (bool, error) {
	if s.host == nil {
		return false, ErrNoLauncher
	}
	tracker, ok := s.host.(ResultTracker)
	if !ok {
		return false, ErrResultsUntracked
	}

	delivered := tracker.Complete(requestCode)
	if !delivered {
		s.logger.Debug("no result pending", "request_code", requestCode)
	}
	return delivered, nil
}
