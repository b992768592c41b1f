package pkg

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hansbonini/popsvcd/pkg/common"
	"github.com/hansbonini/popsvcd/pkg/gameid"
	"github.com/hansbonini/popsvcd/pkg/vcd"
)

// Manifest lists independent jobs for the batch command
type Manifest struct {
	Output string        `yaml:"output"`
	Jobs   []ManifestJob `yaml:"jobs"`

	dir string
}

// ManifestJob is one job entry. Relative paths are resolved against the
// manifest's directory.
type ManifestJob struct {
	Mode   string `yaml:"mode"`
	Sheet  string `yaml:"sheet,omitempty"`
	Input  string `yaml:"input,omitempty"`
	Output string `yaml:"output,omitempty"`
	Name   string `yaml:"name,omitempty"`
	Gap    string `yaml:"gap,omitempty"`
	Policy string `yaml:"policy,omitempty"`
	Debug  bool   `yaml:"debug,omitempty"`
}

// LoadManifest reads a YAML manifest. Unknown keys are rejected.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.FormatPathError(common.ErrFailedToReadManifest, path, err)
	}

	manifest, err := ParseManifest(data)
	if err != nil {
		return nil, common.FormatPathError(common.ErrFailedToParseManifest, path, err)
	}
	manifest.dir = filepath.Dir(path)
	return manifest, nil
}

// ParseManifest decodes a manifest held in memory
func ParseManifest(data []byte) (*Manifest, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var manifest Manifest
	if err := decoder.Decode(&manifest); err != nil {
		return nil, err
	}
	if len(manifest.Jobs) == 0 {
		return nil, fmt.Errorf("manifest lists no jobs")
	}
	return &manifest, nil
}

// Build turns every entry into a Job, failing on the first invalid one
func (m *Manifest) Build() ([]Job, error) {
	jobs := make([]Job, 0, len(m.Jobs))
	for i, entry := range m.Jobs {
		job, err := m.build(entry)
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (m *Manifest) build(entry ManifestJob) (Job, error) {
	mode, err := ParseMode(entry.Mode)
	if err != nil {
		return Job{}, err
	}
	gap, err := vcd.ParseGapName(entry.Gap)
	if err != nil {
		return Job{}, err
	}
	policy, err := gameid.ParsePolicy(entry.Policy)
	if err != nil {
		return Job{}, err
	}

	output := entry.Output
	if output == "" {
		output = m.Output
	}

	job := Job{
		Mode:      mode,
		Sheet:     m.resolve(entry.Sheet),
		Input:     m.resolve(entry.Input),
		OutputDir: m.resolve(output),
		FileName:  entry.Name,
		Gap:       gap,
		Policy:    policy,
		Debug:     entry.Debug,
	}

	switch {
	case job.Mode == ModeDetect && job.Sheet == "" && job.Input == "":
		return Job{}, fmt.Errorf("detect needs a sheet or an input")
	case job.Mode == ModeConvert && (job.Sheet == "" || job.Input == ""):
		return Job{}, fmt.Errorf("convert needs both a sheet and an input")
	case job.Mode != ModeDetect && job.Mode != ModeConvert && job.Sheet == "":
		return Job{}, fmt.Errorf("%s needs a sheet", job.Mode)
	}
	return job, nil
}

func (m *Manifest) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.dir, path)
}

// BatchResult pairs a job with its outcome
type BatchResult struct {
	Job    Job
	Result *Result
	Err    error
}

type batchItem struct {
	index int
	job   Job
}

// RunBatch runs jobs on a pool of workers. Results come back in job order.
// Progress reporting is off since bars would interleave.
func (p *VCDProcessor) RunBatch(jobs []Job, workers int) []BatchResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	results := make([]BatchResult, len(jobs))
	queue := make(chan batchItem, len(jobs))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker := NewVCDProcessor()
			for item := range queue {
				results[item.index] = worker.runItem(item, len(jobs))
			}
		}()
	}

	for i, job := range jobs {
		queue <- batchItem{index: i, job: job}
	}
	close(queue)
	wg.Wait()

	return results
}

func (p *VCDProcessor) runItem(item batchItem, total int) BatchResult {
	n := item.index + 1
	target := item.job.Sheet
	if target == "" {
		target = item.job.Input
	}
	common.LogInfo(common.InfoJobStarted, n, total, item.job.Mode, target)

	result, err := p.Run(item.job)
	if err != nil {
		common.LogWarn(common.WarnJobFailed, n, total, err)
		return BatchResult{Job: item.job, Err: err}
	}

	finished := result.Output
	if finished == "" {
		finished = result.Token()
	}
	common.LogInfo(common.InfoJobFinished, n, total, finished)
	return BatchResult{Job: item.job, Result: result}
}
