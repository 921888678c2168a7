// Package neograph implements the graph store on top of the official Neo4j Go
// driver. Lookups by label and property are built with gocypher, statements
// addressing elements by id use fixed parameterized Cypher.
package neograph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// DBRunner defines the interface for a generic query executor.
// It abstracts the execution of a Cypher query, allowing for different implementations
// or mocking in tests.
type DBRunner interface {
	// Run executes a given Cypher query with parameters and returns a fully-buffered result.
	Run(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error)
}

// Neo4jExecutor is a concrete implementation of the DBRunner interface that uses the
// official Neo4j Go driver. It manages the driver instance and the target database name.
type Neo4jExecutor struct {
	Driver neo4j.DriverWithContext
	DBName string
}

// NewNeo4jExecutor creates and initializes a new Neo4jExecutor.
// It establishes a connection driver with the provided credentials.
//
// Parameters:
//   - uri: The connection URI for the Neo4j instance (e.g., "neo4j://localhost:7687").
//   - username: The username for authentication.
//   - password: The password for authentication.
//   - dbName: The name of the database to connect to (e.g., "neo4j").
//
// Returns:
//
//	A pointer to the newly created Neo4jExecutor or an error if the driver creation fails.
func NewNeo4jExecutor(uri, username, password, dbName string) (*Neo4jExecutor, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("could not create Neo4j driver: %w", err)
	}
	return &Neo4jExecutor{Driver: driver, DBName: dbName}, nil
}

// Verify checks the connectivity to the Neo4j database.
func (e *Neo4jExecutor) Verify(ctx context.Context) error {
	return e.Driver.VerifyConnectivity(ctx)
}

// Run executes a single auto-committed Cypher statement. It is used for schema
// maintenance and read-only graph exports, repository operations go through
// explicit transactions opened by Store.Begin.
func (e *Neo4jExecutor) Run(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(
		ctx,
		e.Driver,
		query,
		params,
		neo4j.EagerResultTransformer, // Buffers all results in memory before returning.
		neo4j.ExecuteQueryWithDatabase(e.DBName),
	)

	if err != nil {
		return nil, fmt.Errorf("error executing neo4j query: %w", err)
	}

	return result, nil
}

// indexedLabels are the labels looked up by business id.
var indexedLabels = []string{
	"inventoryObjects", "listTypeItems", "pools", "templateElements", "users", "groups",
	"queries", "tasks", "businessRules", "generalViews", "objectViews", "attachments",
	"contacts", "reports", "syncGroups", "syncDatasourceConfiguration", "configVariablesPools",
	"configVariables", "validatorDefinitions", "favoritesFolders", "processInstance",
}

// EnsureIndexes creates the lookup indexes used by the repositories. It is
// idempotent.
func EnsureIndexes(ctx context.Context, runner DBRunner) error {
	for _, label := range indexedLabels {
		q, err := quote(label)
		if err != nil {
			return err
		}
		stmt := fmt.Sprintf("CREATE INDEX %s IF NOT EXISTS FOR (n:%s) ON (n._uuid)", "idx_"+label+"_uuid", q)
		if _, err := runner.Run(ctx, stmt, nil); err != nil {
			return err
		}
	}
	if _, err := runner.Run(ctx, "CREATE INDEX idx_classes_name IF NOT EXISTS FOR (n:`classes`) ON (n.name)", nil); err != nil {
		return err
	}
	log.Info("ensured {{count}} indexes", "count", len(indexedLabels)+1)
	return nil
}
