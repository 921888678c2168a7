package application

import (
	"context"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
)

func findProcess(ctx context.Context, tx graph.Tx, id string) (*graph.Node, error) {
	return findNode(ctx, tx, graph.LabelProcessInstances, "process instance", id)
}

func toProcess(n *graph.Node) (*ProcessInstance, error) {
	p, err := processes.FromNode(n)
	if err != nil {
		return nil, err
	}
	p.Artifacts = prefixed(n, artifactPrefix)
	return p, nil
}

// CreateProcessInstance starts an instance of a process definition for an
// inventory object.
func (r *Repository) CreateProcessInstance(ctx context.Context, definitionID, name, description, objectClass, objectID string) (string, error) {
	if blank(definitionID) {
		return "", errs.InvalidArgumentf("the process definition can not be empty")
	}
	if blank(name) {
		return "", errs.InvalidArgumentf("the process instance name can not be empty")
	}
	var id string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		obj, _, err := r.findObject(ctx, tx, objectClass, objectID)
		if err != nil {
			return err
		}
		p := &ProcessInstance{Name: name, Description: description, ProcessDefinitionID: definitionID}
		n, err := processes.Save(ctx, tx, p)
		if err != nil {
			return err
		}
		if _, err := tx.CreateRelationship(ctx, obj.ID, n.ID, graph.RelHasProcessInstance, nil); err != nil {
			return err
		}
		id = p.ID
		return nil
	})
	return id, err
}

// UpdateProcessInstance moves an instance to another activity and sets
// artifacts. An empty activity keeps the current one, empty artifact values
// remove the artifact.
func (r *Repository) UpdateProcessInstance(ctx context.Context, id, currentActivity string, artifacts map[string]string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := findProcess(ctx, tx, id)
		if err != nil {
			return err
		}
		props := prefixedProps(artifactPrefix, artifacts)
		if currentActivity != "" {
			props["currentActivity"] = currentActivity
		}
		return tx.SetProperties(ctx, n.ID, props)
	})
}

// DeleteProcessInstance removes an instance.
func (r *Repository) DeleteProcessInstance(ctx context.Context, id string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		return notFound(processes.Delete(ctx, tx, id), "process instance", id)
	})
}

// GetProcessInstance returns an instance including its artifacts.
func (r *Repository) GetProcessInstance(ctx context.Context, id string) (*ProcessInstance, error) {
	var result *ProcessInstance
	err := r.view(ctx, func(tx graph.Tx) error {
		n, err := findProcess(ctx, tx, id)
		if err != nil {
			return err
		}
		result, err = toProcess(n)
		return err
	})
	return result, err
}

// ProcessInstances returns the instances of a process definition ordered by
// name.
func (r *Repository) ProcessInstances(ctx context.Context, definitionID string) ([]*ProcessInstance, error) {
	var result []*ProcessInstance
	err := r.view(ctx, func(tx graph.Tx) error {
		nodes, err := tx.FindNodes(ctx, graph.LabelProcessInstances, graph.Props{"processDefinitionId": definitionID})
		if err != nil {
			return err
		}
		graph.SortByName(nodes)
		for _, n := range nodes {
			p, err := toProcess(n)
			if err != nil {
				return err
			}
			result = append(result, p)
		}
		return nil
	})
	return result, err
}

// ProcessInstancesForObject returns the instances started for an object.
func (r *Repository) ProcessInstancesForObject(ctx context.Context, objectClass, objectID string) ([]*ProcessInstance, error) {
	var result []*ProcessInstance
	err := r.view(ctx, func(tx graph.Tx) error {
		obj, _, err := r.findObject(ctx, tx, objectClass, objectID)
		if err != nil {
			return err
		}
		nodes, err := graph.Neighbours(ctx, tx, obj.ID, graph.Outgoing, graph.RelHasProcessInstance)
		if err != nil {
			return err
		}
		graph.SortByName(nodes)
		for _, n := range nodes {
			p, err := toProcess(n)
			if err != nil {
				return err
			}
			result = append(result, p)
		}
		return nil
	})
	return result, err
}
