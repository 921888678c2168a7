package application

import (
	"context"
	"errors"
	"sort"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/script"
)

// inventoryReports names the special node inventory level reports hang off.
const inventoryReports = "InventoryReports"

func findReport(ctx context.Context, tx graph.Tx, id string) (*graph.Node, error) {
	return findNode(ctx, tx, graph.LabelReports, "report", id)
}

func toReport(n *graph.Node) (*Report, error) {
	rep, err := reports.FromNode(n)
	if err != nil {
		return nil, err
	}
	rep.Parameters = prefixed(n, parameterPrefix)
	return rep, nil
}

func toReports(nodes []*graph.Node) ([]*Report, error) {
	graph.SortByName(nodes)
	result := make([]*Report, 0, len(nodes))
	for _, n := range nodes {
		rep, err := toReport(n)
		if err != nil {
			return nil, err
		}
		result = append(result, rep)
	}
	return result, nil
}

func checkReport(name, scriptText string, outputType int) error {
	if blank(name) {
		return errs.InvalidArgumentf("the report name can not be empty")
	}
	if blank(scriptText) {
		return errs.InvalidArgumentf("the report script can not be empty")
	}
	if outputType < ReportOutputCSV || outputType > ReportOutputXLSX {
		return errs.InvalidArgumentf("invalid report output type %d", outputType)
	}
	return nil
}

func (r *Repository) createReport(ctx context.Context, rep *Report, owner func(tx graph.Tx) (*graph.Node, error)) (string, error) {
	var id string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		o, err := owner(tx)
		if err != nil {
			return err
		}
		n, err := reports.Save(ctx, tx, rep)
		if err != nil {
			return err
		}
		if len(rep.Parameters) > 0 {
			if err := tx.SetProperties(ctx, n.ID, prefixedProps(parameterPrefix, rep.Parameters)); err != nil {
				return err
			}
		}
		if _, err := tx.CreateRelationship(ctx, o.ID, n.ID, graph.RelHasReport, nil); err != nil {
			return err
		}
		id = rep.ID
		return nil
	})
	return id, err
}

// CreateClassLevelReport stores a report run on single objects of a class
// and its subclasses.
func (r *Repository) CreateClassLevelReport(ctx context.Context, className, name, description, scriptText string, outputType int, enabled bool) (string, error) {
	if err := checkReport(name, scriptText, outputType); err != nil {
		return "", err
	}
	if !r.catalog.HasClass(className) {
		return "", errs.MetadataNotFound("class %s not found", className)
	}
	rep := &Report{Name: name, Description: description, Script: scriptText, OutputType: outputType,
		Enabled: enabled, Type: ReportTypeClassLevel, ClassName: className}
	return r.createReport(ctx, rep, func(tx graph.Tx) (*graph.Node, error) {
		return r.catalog.ClassNode(ctx, tx, className)
	})
}

// CreateInventoryLevelReport stores a report run on the whole inventory.
func (r *Repository) CreateInventoryLevelReport(ctx context.Context, name, description, scriptText string, outputType int, enabled bool, parameters map[string]string) (string, error) {
	if err := checkReport(name, scriptText, outputType); err != nil {
		return "", err
	}
	rep := &Report{Name: name, Description: description, Script: scriptText, OutputType: outputType,
		Enabled: enabled, Type: ReportTypeInventoryLevel, Parameters: parameters}
	return r.createReport(ctx, rep, func(tx graph.Tx) (*graph.Node, error) {
		return specialNode(ctx, tx, inventoryReports, true)
	})
}

// ReportUpdate lists the changes of a report. Nil fields are kept.
type ReportUpdate struct {
	Name        *string
	Description *string
	Script      *string
	OutputType  *int
	Enabled     *bool
}

// UpdateReport changes a report.
func (r *Repository) UpdateReport(ctx context.Context, id string, upd ReportUpdate) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := findReport(ctx, tx, id)
		if err != nil {
			return err
		}
		props := graph.Props{}
		if upd.Name != nil {
			if blank(*upd.Name) {
				return errs.InvalidArgumentf("the report name can not be empty")
			}
			props[graph.PropName] = *upd.Name
		}
		if upd.Description != nil {
			props[graph.PropDescription] = *upd.Description
		}
		if upd.Script != nil {
			if blank(*upd.Script) {
				return errs.InvalidArgumentf("the report script can not be empty")
			}
			props[graph.PropScript] = *upd.Script
		}
		if upd.OutputType != nil {
			if *upd.OutputType < ReportOutputCSV || *upd.OutputType > ReportOutputXLSX {
				return errs.InvalidArgumentf("invalid report output type %d", *upd.OutputType)
			}
			props["outputType"] = int64(*upd.OutputType)
		}
		if upd.Enabled != nil {
			props[graph.PropEnabled] = *upd.Enabled
		}
		return tx.SetProperties(ctx, n.ID, props)
	})
}

// UpdateReportParameters sets parameters of a report. Empty values remove a
// parameter.
func (r *Repository) UpdateReportParameters(ctx context.Context, id string, parameters map[string]string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := findReport(ctx, tx, id)
		if err != nil {
			return err
		}
		return tx.SetProperties(ctx, n.ID, prefixedProps(parameterPrefix, parameters))
	})
}

// DeleteReport removes a report.
func (r *Repository) DeleteReport(ctx context.Context, id string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		return notFound(reports.Delete(ctx, tx, id), "report", id)
	})
}

// GetReport returns a report including its parameters.
func (r *Repository) GetReport(ctx context.Context, id string) (*Report, error) {
	var result *Report
	err := r.view(ctx, func(tx graph.Tx) error {
		n, err := findReport(ctx, tx, id)
		if err != nil {
			return err
		}
		result, err = toReport(n)
		return err
	})
	return result, err
}

// ClassLevelReports returns the reports of a class ordered by name. With
// recursive the reports of the superclasses are included.
func (r *Repository) ClassLevelReports(ctx context.Context, className string, recursive, includeDisabled bool) ([]*Report, error) {
	cls, err := r.catalog.GetClass(className)
	if err != nil {
		return nil, err
	}
	var result []*Report
	err = r.view(ctx, func(tx graph.Tx) error {
		for c := cls; c != nil; {
			n, err := r.catalog.FindClassNode(ctx, tx, c.Name)
			if err == nil {
				nodes, err := graph.Neighbours(ctx, tx, n.ID, graph.Outgoing, graph.RelHasReport)
				if err != nil {
					return err
				}
				list, err := toReports(nodes)
				if err != nil {
					return err
				}
				for _, rep := range list {
					if rep.Enabled || includeDisabled {
						result = append(result, rep)
					}
				}
			} else if !errors.Is(err, graph.ErrNotFound) {
				return err
			}
			if !recursive || c.Parent == "" {
				break
			}
			if c, err = r.catalog.GetClass(c.Parent); err != nil {
				return err
			}
		}
		sort.SliceStable(result, func(i, j int) bool { return result[i].Name < result[j].Name })
		return nil
	})
	return result, err
}

// InventoryLevelReports returns the inventory level reports ordered by name.
func (r *Repository) InventoryLevelReports(ctx context.Context, includeDisabled bool) ([]*Report, error) {
	var result []*Report
	err := r.view(ctx, func(tx graph.Tx) error {
		owner, err := specialNode(ctx, tx, inventoryReports, false)
		if err != nil {
			return notFound(err, "report", inventoryReports)
		}
		nodes, err := graph.Neighbours(ctx, tx, owner.ID, graph.Outgoing, graph.RelHasReport)
		if err != nil {
			return err
		}
		list, err := toReports(nodes)
		if err != nil {
			return err
		}
		for _, rep := range list {
			if rep.Enabled || includeDisabled {
				result = append(result, rep)
			}
		}
		return nil
	})
	if errs.IsApplicationObjectNotFound(err) {
		return nil, nil
	}
	return result, err
}

func (r *Repository) runReport(ctx context.Context, tx graph.Tx, rep *Report, b script.Bindings) ([]byte, error) {
	if !rep.Enabled {
		return nil, errs.InvalidArgumentf("the report %s is not enabled", rep.Name)
	}
	res, err := r.evaluator.Evaluate(ctx, rep.Script, b)
	if err != nil {
		return nil, err
	}
	if res.Kind == script.Failure {
		return nil, errs.InvalidArgumentf("the report %s failed: %v", rep.Name, res.Messages)
	}
	if p, ok := res.Payload.([]byte); ok {
		return p, nil
	}
	return nil, errs.InvalidArgumentf("the report %s does not return a document", rep.Name)
}

// ExecuteClassLevelReport runs a class level report on an object.
func (r *Repository) ExecuteClassLevelReport(ctx context.Context, className, objectID, reportID string) ([]byte, error) {
	if err := r.checkEvaluator(); err != nil {
		return nil, err
	}
	var result []byte
	err := r.view(ctx, func(tx graph.Tx) error {
		_, actual, err := r.findObject(ctx, tx, className, objectID)
		if err != nil {
			return err
		}
		n, err := findReport(ctx, tx, reportID)
		if err != nil {
			return err
		}
		rep, err := toReport(n)
		if err != nil {
			return err
		}
		if rep.Type != ReportTypeClassLevel || !r.catalog.IsSubclassOf(rep.ClassName, actual) {
			return errs.InvalidArgumentf("the report %s can not be run on objects of class %s", rep.Name, actual)
		}
		result, err = r.runReport(ctx, tx, rep, script.Bindings{Tx: tx, ObjectClass: actual, ObjectID: objectID, Parameters: rep.Parameters})
		return err
	})
	return result, err
}

// ExecuteInventoryLevelReport runs an inventory level report. parameters
// override the stored parameters of the report.
func (r *Repository) ExecuteInventoryLevelReport(ctx context.Context, reportID string, parameters map[string]string) ([]byte, error) {
	if err := r.checkEvaluator(); err != nil {
		return nil, err
	}
	var result []byte
	err := r.view(ctx, func(tx graph.Tx) error {
		n, err := findReport(ctx, tx, reportID)
		if err != nil {
			return err
		}
		rep, err := toReport(n)
		if err != nil {
			return err
		}
		if rep.Type != ReportTypeInventoryLevel {
			return errs.InvalidArgumentf("the report %s is not an inventory level report", rep.Name)
		}
		params := rep.Parameters
		for k, v := range parameters {
			params[k] = v
		}
		result, err = r.runReport(ctx, tx, rep, script.Bindings{Tx: tx, Parameters: params})
		return err
	})
	return result, err
}
