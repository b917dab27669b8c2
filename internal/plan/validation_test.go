package plan

import (
	"errors"
	"strings"
	"testing"

	jerrors "github.com/felixgeelhaar/jobbook/internal/errors"
	"github.com/felixgeelhaar/jobbook/internal/job"
)

func script(name string) job.Task { return job.ScriptTask(name, "true") }

func ref(target string) job.Task { return job.TemplateTask("", target) }

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		spec      *job.Spec
		entry     string
		wantCycle []string
		wantRef   *UnknownReferenceError
		wantCode  jerrors.ErrorCode
	}{
		{
			name: "single template",
			spec: job.NewSpec("j", "main", job.NewTemplate("main", job.Stage{script("a")})),
		},
		{
			name: "diamond is not a cycle",
			spec: job.NewSpec("j", "main",
				job.NewTemplate("main", job.Stage{ref("left"), ref("right")}),
				job.NewTemplate("left", job.Stage{ref("shared")}),
				job.NewTemplate("right", job.Stage{ref("shared")}),
				job.NewTemplate("shared", job.Stage{script("leaf")}),
			),
		},
		{
			name: "self reference",
			spec: job.NewSpec("j", "main",
				job.NewTemplate("main", job.Stage{ref("main")}),
			),
			wantCycle: []string{"main", "main"},
			wantCode:  jerrors.ErrCodeGraphCycle,
		},
		{
			name: "loop below entrypoint",
			spec: job.NewSpec("j", "main",
				job.NewTemplate("main", job.Stage{ref("a")}),
				job.NewTemplate("a", job.Stage{script("x")}, job.Stage{ref("b")}),
				job.NewTemplate("b", job.Stage{ref("a")}),
			),
			wantCycle: []string{"a", "b", "a"},
			wantCode:  jerrors.ErrCodeGraphCycle,
		},
		{
			name: "cycle in unreachable templates",
			spec: job.NewSpec("j", "main",
				job.NewTemplate("main", job.Stage{script("a")}),
				job.NewTemplate("x", job.Stage{ref("y")}),
				job.NewTemplate("y", job.Stage{ref("x")}),
			),
			wantCycle: []string{"x", "y", "x"},
			wantCode:  jerrors.ErrCodeGraphCycle,
		},
		{
			name:     "unknown entrypoint",
			spec:     job.NewSpec("j", "main", job.NewTemplate("main")),
			entry:    "nope",
			wantRef:  &UnknownReferenceError{Name: "nope"},
			wantCode: jerrors.ErrCodeGraphUnknownEntrypoint,
		},
		{
			name: "unknown reference",
			spec: job.NewSpec("j", "main",
				job.NewTemplate("main", job.Stage{script("a")}, job.Stage{ref("ghost")}),
			),
			wantRef:  &UnknownReferenceError{Name: "ghost", Template: "main"},
			wantCode: jerrors.ErrCodeGraphUnknownTemplate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.spec, tt.entry)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if got := jerrors.GetCode(err); got != tt.wantCode {
				t.Errorf("code = %s, want %s", got, tt.wantCode)
			}

			if tt.wantCycle != nil {
				var ce *CycleError
				if !errors.As(err, &ce) {
					t.Fatalf("expected *CycleError, got %T", err)
				}
				if strings.Join(ce.Path, ",") != strings.Join(tt.wantCycle, ",") {
					t.Errorf("cycle path = %v, want %v", ce.Path, tt.wantCycle)
				}
				if !strings.Contains(err.Error(), strings.Join(tt.wantCycle, " -> ")) {
					t.Errorf("error %q should name the loop", err.Error())
				}
			}
			if tt.wantRef != nil {
				var ue *UnknownReferenceError
				if !errors.As(err, &ue) {
					t.Fatalf("expected *UnknownReferenceError, got %T", err)
				}
				if *ue != *tt.wantRef {
					t.Errorf("ref error = %+v, want %+v", *ue, *tt.wantRef)
				}
			}
		})
	}
}

func TestValidateUsesSpecEntrypoint(t *testing.T) {
	spec := job.NewSpec("j", "missing", job.NewTemplate("main"))
	err := Validate(spec, "")
	if jerrors.GetCode(err) != jerrors.ErrCodeGraphUnknownEntrypoint {
		t.Errorf("expected unknown entrypoint, got %v", err)
	}
	if err := Validate(spec, "main"); err != nil {
		t.Errorf("override entrypoint should validate, got %v", err)
	}
}

func TestValidateNilSpec(t *testing.T) {
	if err := Validate(nil, "main"); err == nil {
		t.Error("expected error for nil spec")
	}
}

func TestReachable(t *testing.T) {
	spec := job.NewSpec("j", "main",
		job.NewTemplate("main", job.Stage{ref("a"), ref("b")}),
		job.NewTemplate("a", job.Stage{ref("c")}),
		job.NewTemplate("b", job.Stage{ref("c")}),
		job.NewTemplate("c"),
		job.NewTemplate("orphan"),
	)
	got := strings.Join(Reachable(spec, "main"), ",")
	if got != "main,a,c,b" {
		t.Errorf("Reachable() = %s", got)
	}
}
