package neograph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
)

// Store implements graph.Store with one driver session and one explicit
// transaction per graph transaction.
type Store struct {
	exec *Neo4jExecutor
}

var _ graph.Store = (*Store)(nil)

// NewStore creates a store using the driver of the given executor.
func NewStore(exec *Neo4jExecutor) *Store {
	return &Store{exec: exec}
}

// Executor returns the executor used for auto-committed statements.
func (s *Store) Executor() *Neo4jExecutor {
	return s.exec
}

func (s *Store) Begin(ctx context.Context, mode graph.Mode) (graph.Tx, error) {
	access := neo4j.AccessModeRead
	if mode == graph.WriteMode {
		access = neo4j.AccessModeWrite
	}
	session := s.exec.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.exec.DBName, AccessMode: access})
	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		session.Close(ctx)
		return nil, fmt.Errorf("cannot begin %s transaction: %w", mode, err)
	}
	return &Tx{session: session, tx: tx, mode: mode}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.exec.Driver.Close(ctx)
}

// Tx wraps an explicit driver transaction.
type Tx struct {
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
	mode    graph.Mode
	done    bool
}

var (
	_ graph.Tx      = (*Tx)(nil)
	_ graph.Querier = (*Tx)(nil)
)

func (t *Tx) check(write bool) error {
	if t.done {
		return graph.ErrTxClosed
	}
	if write && t.mode != graph.WriteMode {
		return graph.ErrReadOnly
	}
	return nil
}

func (t *Tx) collect(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	result, err := t.tx.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("error executing neo4j query: %w", err)
	}
	return result.Collect(ctx)
}

func (t *Tx) nodes(ctx context.Context, query string, params map[string]any) ([]*graph.Node, error) {
	records, err := t.collect(ctx, query, params)
	if err != nil {
		return nil, err
	}
	result := make([]*graph.Node, 0, len(records))
	for _, record := range records {
		value, ok := record.Get("n")
		if !ok {
			return nil, fmt.Errorf("could not find return value 'n' in query result")
		}
		node, ok := value.(neo4j.Node)
		if !ok {
			return nil, fmt.Errorf("return value 'n' is not a node")
		}
		result = append(result, toNode(node))
	}
	return result, nil
}

func (t *Tx) single(ctx context.Context, query string, params map[string]any) (*graph.Node, error) {
	list, err := t.nodes(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, graph.ErrNotFound
	}
	return list[0], nil
}

func (t *Tx) CreateNode(ctx context.Context, props graph.Props, labels ...string) (*graph.Node, error) {
	if err := t.check(true); err != nil {
		return nil, err
	}
	clause, err := labelClause(labels)
	if err != nil {
		return nil, err
	}
	return t.single(ctx, "CREATE (n"+clause+" $props) RETURN n", map[string]any{"props": createProps(props)})
}

func (t *Tx) GetNode(ctx context.Context, id string) (*graph.Node, error) {
	if err := t.check(false); err != nil {
		return nil, err
	}
	return t.single(ctx, "MATCH (n) WHERE elementId(n) = $id RETURN n", map[string]any{"id": id})
}

func (t *Tx) FindNode(ctx context.Context, label, key string, value any) (*graph.Node, error) {
	list, err := t.FindNodes(ctx, label, graph.Props{key: value})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, graph.ErrNotFound
	}
	return list[0], nil
}

func (t *Tx) FindNodes(ctx context.Context, label string, props graph.Props) ([]*graph.Node, error) {
	if err := t.check(false); err != nil {
		return nil, err
	}
	if label != "" {
		if _, err := quote(label); err != nil {
			return nil, err
		}
	}
	qb := gocypher.NewQueryBuilder()
	if len(props) > 0 {
		qb = qb.Match(gocypher.N("n", label).WithProperties(storeProps(props)))
	} else {
		qb = qb.Match(gocypher.N("n", label))
	}
	query, params, err := qb.Return("n").Build()
	if err != nil {
		return nil, err
	}
	return t.nodes(ctx, query, params)
}

func (t *Tx) SetProperties(ctx context.Context, id string, props graph.Props) error {
	if err := t.check(true); err != nil {
		return err
	}
	_, err := t.single(ctx, "MATCH (n) WHERE elementId(n) = $id SET n += $props RETURN n",
		map[string]any{"id": id, "props": storeProps(props)})
	return err
}

func (t *Tx) DeleteNode(ctx context.Context, id string) error {
	if _, err := t.GetNode(ctx, id); err != nil {
		return err
	}
	if err := t.check(true); err != nil {
		return err
	}
	_, err := t.collect(ctx, "MATCH (n) WHERE elementId(n) = $id DELETE n", map[string]any{"id": id})
	return err
}

func (t *Tx) relationships(ctx context.Context, query string, params map[string]any) ([]*graph.Relationship, error) {
	records, err := t.collect(ctx, query, params)
	if err != nil {
		return nil, err
	}
	var result []*graph.Relationship
	seen := map[string]bool{}
	for _, record := range records {
		value, _ := record.Get("r")
		r, ok := value.(neo4j.Relationship)
		if !ok || seen[r.ElementId] {
			continue
		}
		seen[r.ElementId] = true
		result = append(result, toRelationship(r))
	}
	return result, nil
}

func (t *Tx) CreateRelationship(ctx context.Context, from, to, relType string, props graph.Props) (*graph.Relationship, error) {
	if err := t.check(true); err != nil {
		return nil, err
	}
	q, err := quote(relType)
	if err != nil {
		return nil, err
	}
	list, err := t.relationships(ctx,
		"MATCH (a), (b) WHERE elementId(a) = $from AND elementId(b) = $to CREATE (a)-[r:"+q+" $props]->(b) RETURN r",
		map[string]any{"from": from, "to": to, "props": createProps(props)})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, graph.ErrNotFound
	}
	return list[0], nil
}

func (t *Tx) Relationships(ctx context.Context, nodeID string, dir graph.Direction, types ...string) ([]*graph.Relationship, error) {
	if err := t.check(false); err != nil {
		return nil, err
	}
	clause, err := typeClause(types)
	if err != nil {
		return nil, err
	}
	var pattern string
	switch dir {
	case graph.Outgoing:
		pattern = "(n)-[r" + clause + "]->()"
	case graph.Incoming:
		pattern = "(n)<-[r" + clause + "]-()"
	default:
		pattern = "(n)-[r" + clause + "]-()"
	}
	records, err := t.collect(ctx,
		"MATCH (n) WHERE elementId(n) = $id OPTIONAL MATCH "+pattern+" RETURN n, r ORDER BY elementId(r)",
		map[string]any{"id": nodeID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, graph.ErrNotFound
	}
	var result []*graph.Relationship
	seen := map[string]bool{}
	for _, record := range records {
		value, _ := record.Get("r")
		r, ok := value.(neo4j.Relationship)
		if !ok || seen[r.ElementId] {
			continue
		}
		seen[r.ElementId] = true
		result = append(result, toRelationship(r))
	}
	return result, nil
}

func (t *Tx) SetRelationshipProperties(ctx context.Context, id string, props graph.Props) error {
	if err := t.check(true); err != nil {
		return err
	}
	list, err := t.relationships(ctx, "MATCH ()-[r]->() WHERE elementId(r) = $id SET r += $props RETURN r",
		map[string]any{"id": id, "props": storeProps(props)})
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return graph.ErrNotFound
	}
	return nil
}

func (t *Tx) DeleteRelationship(ctx context.Context, id string) error {
	if err := t.check(true); err != nil {
		return err
	}
	records, err := t.collect(ctx, "MATCH ()-[r]->() WHERE elementId(r) = $id DELETE r RETURN count(*) AS deleted",
		map[string]any{"id": id})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return graph.ErrNotFound
	}
	if v, _ := records[0].Get("deleted"); v == int64(0) {
		return graph.ErrNotFound
	}
	return nil
}

// Query runs a parameterized statement inside the transaction.
func (t *Tx) Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	if err := t.check(false); err != nil {
		return nil, err
	}
	records, err := t.collect(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, len(records))
	for i, record := range records {
		row := make(map[string]any, len(record.Keys))
		for j, key := range record.Keys {
			row[key] = convertValue(record.Values[j])
		}
		rows[i] = row
	}
	return rows, nil
}

func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return graph.ErrTxClosed
	}
	t.done = true
	defer t.session.Close(ctx)
	return t.tx.Commit(ctx)
}

func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return graph.ErrTxClosed
	}
	t.done = true
	defer t.session.Close(ctx)
	return t.tx.Rollback(ctx)
}
