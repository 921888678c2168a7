package application

import (
	"context"
	"sort"
	"strings"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/internal/attrs"
)

// CreateBusinessRule stores a rule with up to five constraints.
func (r *Repository) CreateBusinessRule(ctx context.Context, name, description string, typ, scope int, appliesTo, version string, constraints ...string) (string, error) {
	if blank(name) {
		return "", errs.InvalidArgumentf("the rule name can not be empty")
	}
	if len(constraints) == 0 || len(constraints) > 5 {
		return "", errs.InvalidArgumentf("a business rule needs between one and five constraints, got %d", len(constraints))
	}
	if !r.catalog.HasClass(appliesTo) {
		return "", errs.MetadataNotFound("class %s not found", appliesTo)
	}
	var id string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		rule := &BusinessRule{
			Name:         name,
			Description:  description,
			Type:         typ,
			Scope:        scope,
			AppliesTo:    appliesTo,
			Version:      version,
			CreationDate: now(),
		}
		rule.SetConstraints(constraints...)
		if _, err := businessRules.Save(ctx, tx, rule); err != nil {
			return err
		}
		id = rule.ID
		return nil
	})
	return id, err
}

// DeleteBusinessRule removes a rule.
func (r *Repository) DeleteBusinessRule(ctx context.Context, id string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		return notFound(businessRules.Delete(ctx, tx, id), "business rule", id)
	})
}

func rulesOfType(ctx context.Context, tx graph.Tx, typ int) ([]*BusinessRule, error) {
	var props graph.Props
	if typ != RuleTypeAll {
		props = graph.Props{graph.PropType: int64(typ)}
	}
	list, err := businessRules.FindByProperties(ctx, tx, props)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreationDate < list[j].CreationDate })
	return list, nil
}

// BusinessRules returns the rules of a type, all rules for RuleTypeAll, in
// creation order.
func (r *Repository) BusinessRules(ctx context.Context, typ int) ([]*BusinessRule, error) {
	var result []*BusinessRule
	err := r.view(ctx, func(tx graph.Tx) error {
		var err error
		result, err = rulesOfType(ctx, tx, typ)
		return err
	})
	return result, err
}

// attributeValue renders an attribute of an object for rule matching. List
// type attributes are rendered as the names of the referenced items.
func attributeValue(ctx context.Context, tx graph.Tx, n *graph.Node, attr string) (string, error) {
	if v, ok := n.Props[attr]; ok {
		return graph.FormatValue(v), nil
	}
	rels, err := tx.Relationships(ctx, n.ID, graph.Outgoing, graph.RelRelatedTo)
	if err != nil {
		return "", err
	}
	var names []string
	for _, rel := range graph.FilterRelationships(rels, graph.PropName, attr) {
		item, err := tx.GetNode(ctx, rel.End)
		if err != nil {
			return "", err
		}
		names = append(names, item.Name())
	}
	sort.Strings(names)
	return strings.Join(names, attrs.Separator), nil
}

// CheckRelationshipByAttributeValue verifies that objects of sourceClass may
// be related to the target object. The rules of the source class are
// checked in creation order, the first rule matching the source value
// decides. Without a matching rule the relationship is a violation.
func (r *Repository) CheckRelationshipByAttributeValue(ctx context.Context, tx graph.Tx, sourceClass, sourceID, targetClass, targetID string) error {
	if !r.enforceRules {
		return nil
	}
	all, err := rulesOfType(ctx, tx, RuleTypeRelationshipByAttributeValue)
	if err != nil {
		return err
	}
	var source, target *graph.Node
	for _, b := range all {
		if b.AppliesTo != sourceClass {
			continue
		}
		rule, ok := b.RelationshipRule()
		if !ok {
			return errs.InvalidArgumentf("malformed business rule %s, the class and attribute constraints are required", b.Name)
		}
		if !r.catalog.IsSubclassOf(rule.TargetClass, targetClass) {
			continue
		}
		if rule.SourceValue == "" || rule.TargetValue == "" {
			return nil
		}
		if source == nil {
			if source, _, err = r.findObject(ctx, tx, sourceClass, sourceID); err != nil {
				return err
			}
		}
		value, err := attributeValue(ctx, tx, source, rule.SourceAttribute)
		if err != nil {
			return err
		}
		if value != rule.SourceValue {
			continue
		}
		if target == nil {
			if target, _, err = r.findObject(ctx, tx, targetClass, targetID); err != nil {
				return err
			}
		}
		if value, err = attributeValue(ctx, tx, target, rule.TargetAttribute); err != nil {
			return err
		}
		if value != rule.TargetValue {
			return errs.BusinessRulef("value of %s in %s does not match %s in %s",
				rule.TargetAttribute, targetClass, rule.SourceAttribute, sourceClass)
		}
		log.Trace("relationship {{source}} -> {{target}} allowed by rule {{rule}}", "source", sourceID, "target", targetID, "rule", b.Name)
		return nil
	}
	return errs.BusinessRulef("no matching rule was found for %s and %s", sourceClass, targetClass)
}
