package job

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	jerrors "github.com/felixgeelhaar/jobbook/internal/errors"
)

// languages maps the short language names accepted in job files to the
// interpreter that runs them.
var languages = map[string]string{
	"bash":       "bash",
	"sh":         "sh",
	"python":     "python3",
	"ruby":       "ruby",
	"javascript": "node",
	"node":       "node",
}

// Languages returns the accepted language names, sorted.
func Languages() []string {
	out := make([]string, 0, len(languages))
	for l := range languages {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

// Loader reads job specs from storage.
type Loader interface {
	Load(path string) (*Spec, error)
}

// FileLoader loads YAML job files from disk.
type FileLoader struct{}

// NewFileLoader creates a file-based loader.
func NewFileLoader() *FileLoader {
	return &FileLoader{}
}

// Load reads, parses and validates a job file. A job without a name takes
// the file's base name.
func (l *FileLoader) Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, jerrors.NewJobNotFoundError(path)
		}
		return nil, jerrors.Wrap(jerrors.ErrCodeJobReadFailed, "read job file", err)
	}

	doc, err := decode(data)
	if err != nil {
		return nil, jerrors.NewJobUnmarshalError(path, err)
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return build(doc)
}

var defaultLoader = NewFileLoader()

// LoadFile reads a job file using the default loader.
func LoadFile(path string) (*Spec, error) {
	return defaultLoader.Load(path)
}

// Parse decodes and validates a job from YAML bytes.
func Parse(data []byte) (*Spec, error) {
	doc, err := decode(data)
	if err != nil {
		return nil, jerrors.NewJobUnmarshalError("<input>", err)
	}
	return build(doc)
}

type jobDocument struct {
	Name        string             `yaml:"name"`
	Entrypoint  string             `yaml:"entrypoint"`
	Parallelism *int               `yaml:"parallelism"`
	Templates   []templateDocument `yaml:"templates"`
}

type templateDocument struct {
	Name        string           `yaml:"name"`
	Parallelism *int             `yaml:"parallelism"`
	Tasks       [][]taskDocument `yaml:"tasks"`
	Stages      [][]taskDocument `yaml:"stages"`
}

type taskDocument struct {
	Name         string   `yaml:"name"`
	Labels       []string `yaml:"labels"`
	Script       *string  `yaml:"script"`
	Language     string   `yaml:"language"`
	Executor     string   `yaml:"executor"`
	ExecutorArgs []string `yaml:"executor_args"`
	WorkingDir   string   `yaml:"working_dir"`
	Cwd          string   `yaml:"cwd"`
	Template     *string  `yaml:"template"`
}

func decode(data []byte) (*jobDocument, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc jobDocument
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("job file is empty")
		}
		return nil, err
	}
	return &doc, nil
}

// build converts a decoded document into a Spec, reporting every problem.
func build(doc *jobDocument) (*Spec, error) {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	spec := &Spec{
		Name:        doc.Name,
		Entrypoint:  doc.Entrypoint,
		Parallelism: doc.Parallelism,
		Templates:   make(map[string]*Template, len(doc.Templates)),
	}

	for i, td := range doc.Templates {
		if td.Name == "" {
			addf("template %d: name is required", i+1)
			continue
		}
		if _, dup := spec.Templates[td.Name]; dup {
			addf("template %q is defined more than once", td.Name)
			continue
		}

		stages := td.Tasks
		if len(td.Stages) > 0 {
			if len(td.Tasks) > 0 {
				addf("template %q: use either 'tasks' or 'stages', not both", td.Name)
			}
			stages = td.Stages
		}

		t := &Template{Name: td.Name, Parallelism: td.Parallelism}
		for si, sd := range stages {
			stage := make(Stage, 0, len(sd))
			for ti, taskDoc := range sd {
				task, err := taskDoc.toTask()
				if err != nil {
					addf("template %q stage %d task %d: %v", td.Name, si+1, ti+1, err)
					continue
				}
				stage = append(stage, task)
			}
			t.Stages = append(t.Stages, stage)
		}
		spec.AddTemplate(t)
	}

	if len(problems) > 0 {
		return nil, jerrors.Wrap(jerrors.ErrCodeJobInvalid, "invalid job", &ValidationError{Problems: problems}).
			WithSuggestion("Each task needs exactly one of 'script' or 'template'")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

func (d taskDocument) toTask() (Task, error) {
	task := Task{Name: d.Name, Labels: dedupe(d.Labels)}

	switch {
	case d.Script != nil && d.Template != nil:
		return task, errors.New("has both 'script' and 'template'")
	case d.Script == nil && d.Template == nil:
		return task, errors.New("needs 'script' or 'template'")
	case d.Template != nil:
		if d.Language != "" || d.Executor != "" || len(d.ExecutorArgs) > 0 || d.WorkingDir != "" || d.Cwd != "" {
			return task, errors.New("template tasks take no script options")
		}
		if *d.Template == "" {
			return task, errors.New("'template' is empty")
		}
		task.Template = &TemplateRef{Name: *d.Template}
		return task, nil
	}

	executor := d.Executor
	if d.Language != "" {
		if executor != "" {
			return task, errors.New("set 'language' or 'executor', not both")
		}
		var ok bool
		executor, ok = languages[strings.ToLower(d.Language)]
		if !ok {
			return task, fmt.Errorf("unknown language %q (want one of %s)", d.Language, strings.Join(Languages(), ", "))
		}
	}
	if executor == "" {
		executor = DefaultExecutor
	}

	dir := d.WorkingDir
	if d.Cwd != "" {
		if dir != "" {
			return task, errors.New("set 'working_dir' or 'cwd', not both")
		}
		dir = d.Cwd
	}
	if dir == "" {
		dir = DefaultWorkingDir
	}

	task.Script = &Script{
		Source:       *d.Script,
		Executor:     executor,
		ExecutorArgs: d.ExecutorArgs,
		WorkingDir:   dir,
	}
	return task, nil
}

func dedupe(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l != "" && !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	return out
}
