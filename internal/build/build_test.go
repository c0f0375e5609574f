package build

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/cruciblehq/cibox/internal/manifest"
	"github.com/cruciblehq/cibox/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Records commands and fails those listed in fail.
type fakeSandbox struct {
	fail          map[string]int
	ran           []string
	copied        []byte
	copyDir       string
	copyErr       error
	destroyed     int
	destroyCtxErr error
}

func (f *fakeSandbox) Run(_ context.Context, _ *slog.Logger, command string) error {
	f.ran = append(f.ran, command)
	if code, ok := f.fail[command]; ok {
		return &runtime.ScriptExecutionError{Command: command, ExitCode: code}
	}
	return nil
}

func (f *fakeSandbox) CopyTo(_ context.Context, r io.Reader, dir string) error {
	if f.copyErr != nil {
		return f.copyErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.copied = data
	f.copyDir = dir
	return nil
}

func (f *fakeSandbox) Workdir() string { return "/cibox" }

func (f *fakeSandbox) Destroy(ctx context.Context) {
	f.destroyed++
	f.destroyCtxErr = ctx.Err()
}

type fakeProvisioner struct {
	sbx          *fakeSandbox
	imageErr     error
	provisionErr error
	image        string
	bind         string
	env          []string
}

func (f *fakeProvisioner) EnsureImage(_ context.Context, ref string) (string, error) {
	if f.imageErr != nil {
		return "", f.imageErr
	}
	return "docker.io/library/" + ref, nil
}

func (f *fakeProvisioner) Provision(_ context.Context, image, bind string, env []string) (Sandbox, error) {
	if f.provisionErr != nil {
		return nil, f.provisionErr
	}
	f.image, f.bind, f.env = image, bind, env
	return f.sbx, nil
}

type fakeSource struct {
	workdir    string
	archive    []byte
	archiveErr error
}

func (f *fakeSource) ReadFile(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not used")
}

func (f *fakeSource) Archive(context.Context) (io.ReadCloser, error) {
	if f.archiveErr != nil {
		return nil, f.archiveErr
	}
	return io.NopCloser(bytes.NewReader(f.archive)), nil
}

func (f *fakeSource) Workdir() string { return f.workdir }
func (f *fakeSource) String() string  { return "fake" }

// Returns a configuration whose every stage runs one command named after it.
func stageConfig() manifest.Config {
	cfg := manifest.Config{
		Language: "python",
		Variant:  "3.12",
		Image:    "python:3.12",
		Commands: make(map[manifest.Stage]manifest.Commands),
	}
	for _, stage := range manifest.Stages {
		cfg.Commands[stage] = manifest.Commands{string(stage)}
	}
	return cfg
}

func TestPipelinePassed(t *testing.T) {
	sbx := &fakeSandbox{}

	result, err := NewPipeline(sbx, nil).Run(context.Background(), stageConfig())
	require.NoError(t, err)

	assert.Equal(t, StatusPassed, result.Status)
	assert.NoError(t, result.Err)
	assert.Equal(t, []string{"before_install", "install", "before_script", "script", "after_success", "after_script"}, sbx.ran)
}

func TestPipelineScriptFailure(t *testing.T) {
	sbx := &fakeSandbox{fail: map[string]int{"script": 3}}

	result, err := NewPipeline(sbx, nil).Run(context.Background(), stageConfig())
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, result.Status)
	var scriptErr *runtime.ScriptExecutionError
	require.ErrorAs(t, result.Err, &scriptErr)
	assert.Equal(t, 3, scriptErr.ExitCode)
	assert.Equal(t, []string{"before_install", "install", "before_script", "script", "after_failure", "after_script"}, sbx.ran)
}

func TestPipelineStageStopsAtFirstFailure(t *testing.T) {
	cfg := stageConfig()
	cfg.Commands[manifest.Script] = manifest.Commands{"one", "two", "three"}
	sbx := &fakeSandbox{fail: map[string]int{"two": 1}}

	result, err := NewPipeline(sbx, nil).Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, sbx.ran, "one")
	assert.Contains(t, sbx.ran, "two")
	assert.NotContains(t, sbx.ran, "three")
	assert.Contains(t, result.Err.Error(), "script step 2")
}

func TestPipelinePreparationFailureAborts(t *testing.T) {
	for _, stage := range []manifest.Stage{manifest.BeforeInstall, manifest.Install, manifest.BeforeScript} {
		t.Run(string(stage), func(t *testing.T) {
			sbx := &fakeSandbox{fail: map[string]int{string(stage): 1}}

			result, err := NewPipeline(sbx, nil).Run(context.Background(), stageConfig())
			require.Error(t, err)
			assert.Nil(t, result)

			var scriptErr *runtime.ScriptExecutionError
			assert.ErrorAs(t, err, &scriptErr)
			assert.Equal(t, string(stage), sbx.ran[len(sbx.ran)-1])
			assert.NotContains(t, sbx.ran, "script")
			assert.NotContains(t, sbx.ran, "after_script")
		})
	}
}

func TestPipelineTrailingFailuresKeepOutcome(t *testing.T) {
	tests := []struct {
		name string
		fail map[string]int
		want Status
		ran  []string
	}{
		{
			name: "after_success fails",
			fail: map[string]int{"after_success": 1},
			want: StatusPassed,
			ran:  []string{"before_install", "install", "before_script", "script", "after_success", "after_script"},
		},
		{
			name: "after_script fails",
			fail: map[string]int{"after_script": 1},
			want: StatusPassed,
			ran:  []string{"before_install", "install", "before_script", "script", "after_success", "after_script"},
		},
		{
			name: "after_failure fails",
			fail: map[string]int{"script": 1, "after_failure": 1},
			want: StatusFailed,
			ran:  []string{"before_install", "install", "before_script", "script", "after_failure", "after_script"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sbx := &fakeSandbox{fail: tt.fail}

			result, err := NewPipeline(sbx, nil).Run(context.Background(), stageConfig())
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Status)
			assert.Equal(t, tt.ran, sbx.ran)
		})
	}
}

func TestPipelineEmptyStages(t *testing.T) {
	cfg := manifest.Config{Language: "generic", Image: "ubuntu"}
	sbx := &fakeSandbox{}

	result, err := NewPipeline(sbx, nil).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, StatusPassed, result.Status)
	assert.Empty(t, sbx.ran)
}

func TestPipelineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sbx := &fakeSandbox{}

	_, err := NewPipeline(sbx, nil).Run(ctx, stageConfig())
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sbx.ran)
}

func TestExecuteBindsLocalSource(t *testing.T) {
	cfg := stageConfig()
	cfg.Environment = `FOO=1 BAR="two words"`
	sbx := &fakeSandbox{}
	prov := &fakeProvisioner{sbx: sbx}

	result, err := Execute(context.Background(), prov, &fakeSource{workdir: "/src"}, cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusPassed, result.Status)
	assert.Equal(t, "docker.io/library/python:3.12", prov.image)
	assert.Equal(t, "/src", prov.bind)
	assert.Equal(t, []string{"FOO=1", "BAR=two words"}, prov.env)
	assert.Nil(t, sbx.copied)
	assert.Equal(t, 1, sbx.destroyed)
}

func TestExecuteInjectsArchive(t *testing.T) {
	var archive bytes.Buffer
	tw := tar.NewWriter(&archive)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "README", Mode: 0o644, Size: 2}))
	_, err := tw.Write([]byte("hi"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	sbx := &fakeSandbox{}
	prov := &fakeProvisioner{sbx: sbx}

	result, err := Execute(context.Background(), prov, &fakeSource{archive: archive.Bytes()}, stageConfig(), nil)
	require.NoError(t, err)

	assert.Equal(t, StatusPassed, result.Status)
	assert.Empty(t, prov.bind)
	assert.Equal(t, archive.Bytes(), sbx.copied)
	assert.Equal(t, "/cibox", sbx.copyDir)
	assert.Equal(t, 1, sbx.destroyed)
}

func TestExecuteScriptFailure(t *testing.T) {
	sbx := &fakeSandbox{fail: map[string]int{"script": 1}}

	result, err := Execute(context.Background(), &fakeProvisioner{sbx: sbx}, &fakeSource{workdir: "/src"}, stageConfig(), nil)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, 1, result.Status.ExitCode())
	assert.Equal(t, 1, sbx.destroyed)
}

func TestExecuteErrorsInsideSandbox(t *testing.T) {
	tests := []struct {
		name string
		sbx  *fakeSandbox
		src  *fakeSource
		want error
	}{
		{
			name: "preparation failure",
			sbx:  &fakeSandbox{fail: map[string]int{"install": 1}},
			src:  &fakeSource{workdir: "/src"},
		},
		{
			name: "archive failure",
			sbx:  &fakeSandbox{},
			src:  &fakeSource{archiveErr: errors.New("boom")},
			want: ErrInject,
		},
		{
			name: "copy failure",
			sbx:  &fakeSandbox{copyErr: errors.New("tar failed")},
			src:  &fakeSource{},
			want: ErrInject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Execute(context.Background(), &fakeProvisioner{sbx: tt.sbx}, tt.src, stageConfig(), nil)
			require.NoError(t, err)

			assert.Equal(t, StatusErrored, result.Status)
			assert.Equal(t, 2, result.Status.ExitCode())
			require.Error(t, result.Err)
			if tt.want != nil {
				assert.ErrorIs(t, result.Err, tt.want)
			}
			assert.Equal(t, 1, tt.sbx.destroyed)
		})
	}
}

func TestExecuteDestroysWithLiveContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sbx := &fakeSandbox{}
	prov := &fakeProvisioner{sbx: sbx}
	cancel()

	result, err := Execute(ctx, prov, &fakeSource{workdir: "/src"}, stageConfig(), nil)
	require.NoError(t, err)

	assert.Equal(t, StatusErrored, result.Status)
	assert.Equal(t, 1, sbx.destroyed)
	assert.NoError(t, sbx.destroyCtxErr)
}

func TestExecuteErrorsBeforeSandbox(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name string
		prov *fakeProvisioner
		env  string
		want error
	}{
		{name: "image", prov: &fakeProvisioner{imageErr: boom}, want: boom},
		{name: "provision", prov: &fakeProvisioner{provisionErr: boom}, want: boom},
		{name: "environment", prov: &fakeProvisioner{}, env: `FOO="unterminated`, want: ErrEnvironment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := stageConfig()
			cfg.Environment = tt.env

			result, err := Execute(context.Background(), tt.prov, &fakeSource{workdir: "/src"}, cfg, nil)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, result)
		})
	}
}

func TestStatusExitCode(t *testing.T) {
	assert.Equal(t, 0, StatusPassed.ExitCode())
	assert.Equal(t, 1, StatusFailed.ExitCode())
	assert.Equal(t, 2, StatusErrored.ExitCode())
}

func TestPipelineLogsStageContext(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	_, err := NewPipeline(&fakeSandbox{}, log).Run(context.Background(), stageConfig())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "stage=before_install")
	assert.True(t, strings.Contains(out, "running script for `script` stage"))
}
