package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/script"
)

// subscription marks a SUBSCRIBED_TO relationship from a user to a task.
const subscription = "task"

// Task properties changeable with UpdateTaskProperties.
const (
	TaskPropertyName            = graph.PropName
	TaskPropertyDescription     = graph.PropDescription
	TaskPropertyScript          = graph.PropScript
	TaskPropertyEnabled         = graph.PropEnabled
	TaskPropertyCommitOnExecute = "commitOnExecute"
)

func findTask(ctx context.Context, tx graph.Tx, id string) (*graph.Node, error) {
	return findNode(ctx, tx, graph.LabelTasks, "task", id)
}

func toTask(n *graph.Node) (*Task, error) {
	t, err := tasks.FromNode(n)
	if err != nil {
		return nil, err
	}
	t.Parameters = prefixed(n, parameterPrefix)
	return t, nil
}

func toTasks(nodes []*graph.Node) ([]*Task, error) {
	graph.SortByName(nodes)
	result := make([]*Task, 0, len(nodes))
	for _, n := range nodes {
		t, err := toTask(n)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, nil
}

// CreateTask stores a task including its parameters.
func (r *Repository) CreateTask(ctx context.Context, task *Task) (string, error) {
	if blank(task.Name) {
		return "", errs.InvalidArgumentf("the task name can not be empty")
	}
	var id string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		t := *task
		t.ID = ""
		n, err := tasks.Save(ctx, tx, &t)
		if err != nil {
			return err
		}
		if len(task.Parameters) > 0 {
			if err := tx.SetProperties(ctx, n.ID, prefixedProps(parameterPrefix, task.Parameters)); err != nil {
				return err
			}
		}
		id = t.ID
		return nil
	})
	return id, err
}

// UpdateTaskProperties changes one of the basic properties of a task.
func (r *Repository) UpdateTaskProperties(ctx context.Context, id, property, value string) error {
	var v any
	switch property {
	case TaskPropertyName:
		if blank(value) {
			return errs.InvalidArgumentf("the task name can not be empty")
		}
		v = value
	case TaskPropertyDescription, TaskPropertyScript:
		v = value
		if value == "" {
			v = nil
		}
	case TaskPropertyEnabled, TaskPropertyCommitOnExecute:
		v = value == "true"
	default:
		return errs.InvalidArgumentf("the property %s of tasks can not be changed", property)
	}
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := findTask(ctx, tx, id)
		if err != nil {
			return err
		}
		return tx.SetProperties(ctx, n.ID, graph.Props{property: v})
	})
}

// UpdateTaskParameters sets parameters of a task. Empty values remove a
// parameter.
func (r *Repository) UpdateTaskParameters(ctx context.Context, id string, parameters map[string]string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := findTask(ctx, tx, id)
		if err != nil {
			return err
		}
		return tx.SetProperties(ctx, n.ID, prefixedProps(parameterPrefix, parameters))
	})
}

// UpdateTaskSchedule replaces the schedule of a task.
func (r *Repository) UpdateTaskSchedule(ctx context.Context, id string, schedule TaskSchedule) error {
	switch schedule.ExecutionType {
	case ExecutionTypeOnDemand, ExecutionTypeSystem, ExecutionTypeLoop, ExecutionTypeStartup:
	default:
		return errs.InvalidArgumentf("invalid execution type %d", schedule.ExecutionType)
	}
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := findTask(ctx, tx, id)
		if err != nil {
			return err
		}
		return tx.SetProperties(ctx, n.ID, graph.Props{
			"executionType": int64(schedule.ExecutionType),
			"everyXMinutes": schedule.EveryXMinutes,
			"startTime":     schedule.StartTime,
		})
	})
}

// UpdateTaskNotificationType changes how the results of a task are reported.
func (r *Repository) UpdateTaskNotificationType(ctx context.Context, id string, notificationType int, email string) error {
	switch notificationType {
	case NotificationNone, NotificationClient:
	case NotificationEmail:
		if blank(email) {
			return errs.InvalidArgumentf("an email notification requires an address")
		}
	default:
		return errs.InvalidArgumentf("invalid notification type %d", notificationType)
	}
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := findTask(ctx, tx, id)
		if err != nil {
			return err
		}
		props := graph.Props{"notificationType": int64(notificationType), "email": nil}
		if email != "" {
			props["email"] = email
		}
		return tx.SetProperties(ctx, n.ID, props)
	})
}

// DeleteTask removes a task and its subscriptions.
func (r *Repository) DeleteTask(ctx context.Context, id string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		return notFound(tasks.Delete(ctx, tx, id), "task", id)
	})
}

func subscriptionOf(ctx context.Context, tx graph.Tx, userNode, taskNode *graph.Node) (*graph.Relationship, error) {
	rel, err := linked(ctx, tx, userNode.ID, taskNode.ID, graph.RelSubscribedTo)
	if err != nil || rel == nil || rel.String(graph.PropName) != subscription {
		return nil, err
	}
	return rel, nil
}

// SubscribeUserToTask registers a user for the results of a task.
func (r *Repository) SubscribeUserToTask(ctx context.Context, userID, taskID string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		u, err := findUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		t, err := findTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		rel, err := subscriptionOf(ctx, tx, u, t)
		if err != nil {
			return err
		}
		if rel != nil {
			return errs.InvalidArgumentf("the user %s is already subscribed to the task %s", u.Name(), t.Name())
		}
		_, err = tx.CreateRelationship(ctx, u.ID, t.ID, graph.RelSubscribedTo, graph.Props{graph.PropName: subscription})
		return err
	})
}

// UnsubscribeUserFromTask ends a subscription.
func (r *Repository) UnsubscribeUserFromTask(ctx context.Context, userID, taskID string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		u, err := findUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		t, err := findTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		rel, err := subscriptionOf(ctx, tx, u, t)
		if err != nil {
			return err
		}
		if rel == nil {
			return errs.ApplicationObjectNotFound("subscription", fmt.Sprintf("%s/%s", u.Name(), t.Name()))
		}
		return tx.DeleteRelationship(ctx, rel.ID)
	})
}

// GetTask returns a task including its parameters.
func (r *Repository) GetTask(ctx context.Context, id string) (*Task, error) {
	var result *Task
	err := r.view(ctx, func(tx graph.Tx) error {
		n, err := findTask(ctx, tx, id)
		if err != nil {
			return err
		}
		result, err = toTask(n)
		return err
	})
	return result, err
}

// Tasks returns all tasks ordered by name.
func (r *Repository) Tasks(ctx context.Context) ([]*Task, error) {
	var result []*Task
	err := r.view(ctx, func(tx graph.Tx) error {
		nodes, err := tx.FindNodes(ctx, graph.LabelTasks, nil)
		if err != nil {
			return err
		}
		result, err = toTasks(nodes)
		return err
	})
	return result, err
}

// TasksForUser returns the tasks a user is subscribed to.
func (r *Repository) TasksForUser(ctx context.Context, userID string) ([]*Task, error) {
	var result []*Task
	err := r.view(ctx, func(tx graph.Tx) error {
		u, err := findUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		rels, err := tx.Relationships(ctx, u.ID, graph.Outgoing, graph.RelSubscribedTo)
		if err != nil {
			return err
		}
		var nodes []*graph.Node
		for _, rel := range graph.FilterRelationships(rels, graph.PropName, subscription) {
			n, err := tx.GetNode(ctx, rel.End)
			if err != nil {
				return err
			}
			nodes = append(nodes, n)
		}
		result, err = toTasks(nodes)
		return err
	})
	return result, err
}

// SubscribersForTask returns the users subscribed to a task.
func (r *Repository) SubscribersForTask(ctx context.Context, taskID string) ([]*User, error) {
	var result []*User
	err := r.view(ctx, func(tx graph.Tx) error {
		t, err := findTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		rels, err := tx.Relationships(ctx, t.ID, graph.Incoming, graph.RelSubscribedTo)
		if err != nil {
			return err
		}
		var nodes []*graph.Node
		for _, rel := range graph.FilterRelationships(rels, graph.PropName, subscription) {
			n, err := tx.GetNode(ctx, rel.Start)
			if err != nil {
				return err
			}
			nodes = append(nodes, n)
		}
		result, err = toUsers(ctx, tx, nodes)
		return err
	})
	return result, err
}

// ExecuteTask runs the script of an enabled task. The changes of the script
// are committed only if the task commits on execute. A failing script yields
// a result with an error message.
func (r *Repository) ExecuteTask(ctx context.Context, id string) (*script.TaskResult, error) {
	if err := r.checkEvaluator(); err != nil {
		return nil, err
	}
	tx, err := r.store.Begin(ctx, graph.WriteMode)
	if err != nil {
		return nil, err
	}
	commit := false
	defer func() {
		if !commit {
			if rerr := tx.Rollback(ctx); rerr != nil && !errors.Is(rerr, graph.ErrTxClosed) {
				log.LogError(rerr, "cannot roll back task {{task}}", "task", id)
			}
		}
	}()

	n, err := findTask(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	task, err := toTask(n)
	if err != nil {
		return nil, err
	}
	if blank(task.Script) {
		return nil, errs.InvalidArgumentf("the task %s has no script", task.Name)
	}
	if !task.Enabled {
		return nil, errs.InvalidArgumentf("the task %s is not enabled", task.Name)
	}

	log.Info("executing task {{task}}", "task", task.Name)
	res, err := r.evaluator.Evaluate(ctx, task.Script, script.Bindings{Tx: tx, Parameters: task.Parameters})
	if err != nil {
		if errs.IsInvalidArgument(err) {
			return nil, err
		}
		log.LogError(err, "task {{task}} failed", "task", task.Name)
		return (&script.TaskResult{}).Add(script.MessageError, err.Error()), nil
	}
	if res.Kind == script.Failure {
		result := &script.TaskResult{}
		for _, m := range res.Messages {
			result.Add(script.MessageError, m)
		}
		return result, nil
	}
	var result *script.TaskResult
	switch p := res.Payload.(type) {
	case *script.TaskResult:
		result = p
	case script.TaskResult:
		result = &p
	}
	if result == nil {
		return nil, errs.InvalidArgumentf("the script of task %s does not return a task result", task.Name)
	}
	if task.CommitOnExecute {
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		commit = true
	}
	return result, nil
}
