package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"kilometers.ai/standin/internal/core/component"
	"kilometers.ai/standin/internal/core/descriptor"
	"kilometers.ai/standin/internal/core/launch"
	"kilometers.ai/standin/internal/core/testfixtures"
)

// Mock implementations

type MockManifestSource struct {
	mock.Mock
}

func (m *MockManifestSource) LoadPath(ctx context.Context, path string) ([]descriptor.Set, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]descriptor.Set), args.Error(1)
}

type MockHost struct {
	mock.Mock
}

func (m *MockHost) Launch(ctx context.Context, req *launch.Request) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockHost) LaunchForResult(ctx context.Context, req *launch.Request, requestCode int) error {
	args := m.Called(ctx, req, requestCode)
	return args.Error(0)
}

// MockTrackingHost also tracks pending results
type MockTrackingHost struct {
	MockHost
}

func (m *MockTrackingHost) Complete(requestCode int) bool {
	args := m.Called(requestCode)
	return args.Bool(0)
}

func newService(t *testing.T, manifests ManifestSource, host HostLauncher) *RedirectService {
	t.Helper()
	registry, err := testfixtures.NewRegistry()
	require.NoError(t, err)
	return NewRedirectService(registry, manifests, host, nil)
}

func pluginSet(namespace string, classNames ...string) descriptor.Set {
	return testfixtures.NewSetBuilder(namespace).WithActivities(classNames...).Build()
}

func TestRedirectService_LoadManifests(t *testing.T) {
	ctx := context.Background()
	manifests := new(MockManifestSource)
	manifests.On("LoadPath", ctx, "plugins/a").Return([]descriptor.Set{
		pluginSet("com.example.a", "Main", "Settings"),
	}, nil)
	manifests.On("LoadPath", ctx, "plugins/b").Return([]descriptor.Set{
		pluginSet("com.example.b", "Main"),
	}, nil)

	service := newService(t, manifests, nil)
	report, err := service.LoadManifests(ctx, "plugins/a", "plugins/b")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Plugins)
	assert.Equal(t, 3, report.Activities)
	assert.Equal(t, 3, report.NewBindings)
	assert.Equal(t, []component.Name{component.MustName("com.example.a", "Main")}, report.Unreachable)
	manifests.AssertExpectations(t)

	resolution, ok := service.Resolve("Main")
	require.True(t, ok)
	assert.Equal(t, "com.example.b", resolution.Logical.Namespace)
	assert.Len(t, service.Bindings(), 3)
}

func TestRedirectService_LoadManifestsFailure(t *testing.T) {
	ctx := context.Background()
	manifests := new(MockManifestSource)
	manifests.On("LoadPath", ctx, "plugins/a").Return([]descriptor.Set{pluginSet("com.example.a", "Main")}, nil)
	manifests.On("LoadPath", ctx, "missing").Return(nil, errors.New("no such file"))

	service := newService(t, manifests, nil)
	_, err := service.LoadManifests(ctx, "plugins/a", "missing")
	assert.ErrorContains(t, err, "failed to load manifests from missing")

	_, ok := service.Resolve("Main")
	assert.True(t, ok, "sets before the failure stay ingested")
}

func TestRedirectService_Ingest(t *testing.T) {
	service := newService(t, nil, nil)

	assert.ErrorIs(t, service.Ingest(descriptor.Set{}), descriptor.ErrEmptyNamespace)
	require.NoError(t, service.Ingest(pluginSet(testfixtures.PluginNamespace, "MainActivity")))
	assert.Empty(t, service.Unreachable())
}

func TestRedirectService_Convert(t *testing.T) {
	service := newService(t, nil, nil)
	require.NoError(t, service.Ingest(pluginSet(testfixtures.PluginNamespace, "MainActivity")))

	handled := service.Convert(testfixtures.NewRequestBuilder("MainActivity").Build())
	require.True(t, handled.Handled)
	assert.Equal(t, testfixtures.ContainerA, *handled.Physical)
	assert.Equal(t, component.MustName(testfixtures.PluginNamespace, "MainActivity"), *handled.Logical)
	assert.Equal(t, testfixtures.ContainerA, *handled.Request.Target)

	original := testfixtures.NewRequestBuilder("NotAPlugin").Build()
	fallback := service.Convert(original)
	assert.False(t, fallback.Handled)
	assert.Same(t, original, fallback.Request)
	assert.Nil(t, fallback.Logical)
}

func TestRedirectService_Launch(t *testing.T) {
	ctx := context.Background()
	toContainer := mock.MatchedBy(func(req *launch.Request) bool {
		return req.Target != nil && *req.Target == testfixtures.ContainerA
	})

	t.Run("plain launch", func(t *testing.T) {
		host := new(MockHost)
		host.On("Launch", ctx, toContainer).Return(nil).Once()
		service := newService(t, nil, host)
		require.NoError(t, service.Ingest(pluginSet(testfixtures.PluginNamespace, "MainActivity")))

		result, err := service.Launch(ctx, testfixtures.NewRequestBuilder("MainActivity").Build(), nil)
		require.NoError(t, err)
		assert.True(t, result.Handled)
		assert.Equal(t, testfixtures.ContainerA, *result.Physical)
		assert.Nil(t, result.RequestCode)
		host.AssertExpectations(t)
	})

	t.Run("launch for result", func(t *testing.T) {
		host := new(MockHost)
		host.On("LaunchForResult", ctx, toContainer, 42).Return(nil).Once()
		service := newService(t, nil, host)
		require.NoError(t, service.Ingest(pluginSet(testfixtures.PluginNamespace, "MainActivity")))

		code := 42
		result, err := service.Launch(ctx, testfixtures.NewRequestBuilder("MainActivity").Build(), &code)
		require.NoError(t, err)
		assert.True(t, result.Handled)
		assert.Equal(t, 42, *result.RequestCode)
		host.AssertExpectations(t)
	})

	t.Run("not a plugin component", func(t *testing.T) {
		host := new(MockHost)
		service := newService(t, nil, host)

		result, err := service.Launch(ctx, testfixtures.NewUntargetedRequestBuilder("VIEW").Build(), nil)
		require.NoError(t, err)
		assert.False(t, result.Handled)
		host.AssertNotCalled(t, "Launch", mock.Anything, mock.Anything)
	})

	t.Run("host failure", func(t *testing.T) {
		host := new(MockHost)
		hostErr := errors.New("activity not found")
		host.On("Launch", ctx, toContainer).Return(hostErr)
		service := newService(t, nil, host)
		require.NoError(t, service.Ingest(pluginSet(testfixtures.PluginNamespace, "MainActivity")))

		result, err := service.Launch(ctx, testfixtures.NewRequestBuilder("MainActivity").Build(), nil)
		assert.ErrorIs(t, err, hostErr)
		assert.True(t, result.Handled)
		assert.NotNil(t, result.Logical)
	})

	t.Run("no launcher", func(t *testing.T) {
		service := newService(t, nil, nil)
		_, err := service.Launch(ctx, testfixtures.NewRequestBuilder("MainActivity").Build(), nil)
		assert.ErrorIs(t, err, ErrNoLauncher)
	})
}

func TestRedirectService_CompleteResult(t *testing.T) {
	t.Run("delivered", func(t *testing.T) {
		host := new(MockTrackingHost)
		host.On("Complete", 5).Return(true).Once()
		host.On("Complete", 6).Return(false).Once()
		service := newService(t, nil, host)

		delivered, err := service.CompleteResult(5)
		require.NoError(t, err)
		assert.True(t, delivered)

		delivered, err = service.CompleteResult(6)
		require.NoError(t, err)
		assert.False(t, delivered)
		host.AssertExpectations(t)
	})

	t.Run("host without tracking", func(t *testing.T) {
		_, err := newService(t, nil, new(MockHost)).CompleteResult(5)
		assert.ErrorIs(t, err, ErrResultsUntracked)
	})

	t.Run("no launcher", func(t *testing.T) {
		_, err := newService(t, nil, nil).CompleteResult(5)
		assert.ErrorIs(t, err, ErrNoLauncher)
	})
}
