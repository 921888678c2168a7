package application

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/script"
)

// validatorCache keeps the validator definitions applicable to a class,
// including those of its superclasses. Any change of a definition clears
// the whole cache.
type validatorCache struct {
	lock    sync.RWMutex
	byClass map[string][]*ValidatorDefinition
}

func newValidatorCache() *validatorCache {
	return &validatorCache{byClass: map[string][]*ValidatorDefinition{}}
}

func (c *validatorCache) get(class string) ([]*ValidatorDefinition, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	list, ok := c.byClass[class]
	return list, ok
}

func (c *validatorCache) put(class string, list []*ValidatorDefinition) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.byClass[class] = list
}

func (c *validatorCache) clear() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.byClass = map[string][]*ValidatorDefinition{}
}

func findValidator(ctx context.Context, tx graph.Tx, id string) (*graph.Node, error) {
	return findNode(ctx, tx, graph.LabelValidatorDefinitions, "validator definition", id)
}

// CreateValidatorDefinition stores a validator for the objects of a class.
func (r *Repository) CreateValidatorDefinition(ctx context.Context, name, description, className, scriptText string, enabled bool) (string, error) {
	if blank(name) {
		return "", errs.InvalidArgumentf("the validator name can not be empty")
	}
	if !r.catalog.HasClass(className) {
		return "", errs.MetadataNotFound("class %s not found", className)
	}
	var id string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		v := &ValidatorDefinition{
			Name:        name,
			Description: description,
			ClassName:   className,
			Script:      strings.TrimSpace(scriptText),
			Enabled:     enabled,
		}
		if _, err := validatorDefs.Save(ctx, tx, v); err != nil {
			return err
		}
		id = v.ID
		return nil
	})
	r.validators.clear()
	return id, err
}

// ValidatorUpdate lists the changes of a validator definition. Nil fields
// are kept.
type ValidatorUpdate struct {
	Name        *string
	Description *string
	ClassName   *string
	Script      *string
	Enabled     *bool
}

// UpdateValidatorDefinition changes a validator definition.
func (r *Repository) UpdateValidatorDefinition(ctx context.Context, id string, upd ValidatorUpdate) error {
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := findValidator(ctx, tx, id)
		if err != nil {
			return err
		}
		props := graph.Props{}
		if upd.Name != nil {
			if blank(*upd.Name) {
				return errs.InvalidArgumentf("the validator name can not be empty")
			}
			props[graph.PropName] = *upd.Name
		}
		if upd.Description != nil {
			props[graph.PropDescription] = *upd.Description
		}
		if upd.ClassName != nil {
			if !r.catalog.HasClass(*upd.ClassName) {
				return errs.MetadataNotFound("class %s not found", *upd.ClassName)
			}
			props[graph.PropClassName] = *upd.ClassName
		}
		if upd.Script != nil {
			props[graph.PropScript] = strings.TrimSpace(*upd.Script)
		}
		if upd.Enabled != nil {
			props[graph.PropEnabled] = *upd.Enabled
		}
		return tx.SetProperties(ctx, n.ID, props)
	})
	r.validators.clear()
	return err
}

// DeleteValidatorDefinition removes a validator definition.
func (r *Repository) DeleteValidatorDefinition(ctx context.Context, id string) error {
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		return notFound(validatorDefs.Delete(ctx, tx, id), "validator definition", id)
	})
	r.validators.clear()
	return err
}

func (r *Repository) validatorsFor(ctx context.Context, tx graph.Tx, className string) ([]*ValidatorDefinition, error) {
	if list, ok := r.validators.get(className); ok {
		return list, nil
	}
	all, err := validatorDefs.FindAll(ctx, tx)
	if err != nil {
		return nil, err
	}
	var list []*ValidatorDefinition
	for _, v := range all {
		if r.catalog.IsSubclassOf(v.ClassName, className) {
			list = append(list, v)
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	r.validators.put(className, list)
	return list, nil
}

// ValidatorDefinitionsForClass returns the validator definitions applying to
// objects of a class, including those defined for its superclasses.
func (r *Repository) ValidatorDefinitionsForClass(ctx context.Context, className string) ([]*ValidatorDefinition, error) {
	if !r.catalog.HasClass(className) {
		return nil, errs.MetadataNotFound("class %s not found", className)
	}
	var result []*ValidatorDefinition
	err := r.view(ctx, func(tx graph.Tx) error {
		list, err := r.validatorsFor(ctx, tx, className)
		if err != nil {
			return err
		}
		for _, v := range list {
			c := *v
			result = append(result, &c)
		}
		return nil
	})
	return result, err
}

// RunValidations evaluates the enabled validators of an object and returns
// the validators whose condition holds. Failing scripts are logged and
// skipped. The scripts can not modify the inventory.
func (r *Repository) RunValidations(ctx context.Context, className, id string) ([]*script.Validator, error) {
	if r.evaluator == nil || !r.catalog.HasClass(className) {
		return nil, nil
	}
	var result []*script.Validator
	err := r.view(ctx, func(tx graph.Tx) error {
		if _, _, err := r.findObject(ctx, tx, className, id); err != nil {
			return err
		}
		list, err := r.validatorsFor(ctx, tx, className)
		if err != nil {
			return err
		}
		for _, v := range list {
			if !v.Enabled || v.Script == "" {
				continue
			}
			res, err := r.evaluator.Evaluate(ctx, v.Script, script.Bindings{Tx: tx, ObjectClass: className, ObjectID: id})
			if err != nil {
				log.LogError(err, "validator {{validator}} failed for {{id}}", "validator", v.Name, "id", id)
				continue
			}
			if res.Kind == script.Failure {
				log.Debug("validator {{validator}} failed for {{id}}: {{messages}}", "validator", v.Name, "id", id, "messages", res.Messages)
				continue
			}
			switch p := res.Payload.(type) {
			case *script.Validator:
				if p != nil {
					result = append(result, p)
				}
			case nil:
			default:
				log.Info("validator {{validator}} returned an unexpected result {{type}}", "validator", v.Name, "type", p)
			}
		}
		return nil
	})
	return result, err
}
