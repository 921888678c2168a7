// Package script evaluates the scripts attached to tasks, reports and
// validator definitions. The repositories treat script text as opaque and
// only interpret the tagged result.
package script

import (
	"context"
	"strings"
	"sync"

	"github.com/mandelsoft/goutils/maputils"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
)

// Bindings is the environment a script runs in.
type Bindings struct {
	// Tx is the transaction of the calling operation.
	Tx          graph.Tx
	ObjectClass string
	ObjectID    string
	Parameters  map[string]string
}

// Kind tags a script result.
type Kind int

const (
	Success Kind = iota
	Failure
)

func (k Kind) String() string {
	if k == Failure {
		return "failure"
	}
	return "success"
}

// Result is the outcome of a script evaluation.
type Result struct {
	Kind     Kind
	Payload  any
	Messages []string
}

// Succeeded wraps a payload.
func Succeeded(payload any) Result {
	return Result{Kind: Success, Payload: payload}
}

// Failed creates a failure result.
func Failed(messages ...string) Result {
	return Result{Kind: Failure, Messages: messages}
}

// Evaluator runs scripts.
type Evaluator interface {
	Evaluate(ctx context.Context, script string, b Bindings) (Result, error)
}

// Message types of a task result.
const (
	MessageSuccess = "success"
	MessageWarning = "warning"
	MessageError   = "error"
)

// TaskMessage is one line of a task result.
type TaskMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// TaskResult is the payload expected from task scripts.
type TaskResult struct {
	Messages []TaskMessage `json:"messages"`
}

// Add appends a message.
func (r *TaskResult) Add(typ, msg string) *TaskResult {
	r.Messages = append(r.Messages, TaskMessage{Type: typ, Message: msg})
	return r
}

// Validator is the payload of a validator script whose condition holds for
// an object. A script returns a nil payload if its condition does not apply.
type Validator struct {
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Func is a script implementation.
type Func func(ctx context.Context, b Bindings) (Result, error)

// Registry is an Evaluator dispatching script text, interpreted as a
// function name, to registered functions.
type Registry struct {
	lock  sync.RWMutex
	funcs map[string]Func
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: map[string]Func{}}
}

// Register adds or replaces a script.
func (r *Registry) Register(name string, fn Func) *Registry {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.funcs[name] = fn
	return r
}

// Names returns the registered script names in order.
func (r *Registry) Names() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return maputils.OrderedKeys(r.funcs)
}

func (r *Registry) Evaluate(ctx context.Context, script string, b Bindings) (Result, error) {
	name := strings.TrimSpace(script)
	r.lock.RLock()
	fn := r.funcs[name]
	r.lock.RUnlock()
	if fn == nil {
		return Result{}, errs.InvalidArgumentf("unknown script %q", name)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	log.Debug("evaluating script {{script}} for {{class}} {{id}}", "script", name, "class", b.ObjectClass, "id", b.ObjectID)
	return fn(ctx, b)
}
