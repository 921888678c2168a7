package application

import (
	"strings"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/record"
)

// Bootstrap account.
const (
	AdminUser  = "admin"
	AdminGroup = "Administrators"
)

// User types.
const (
	UserTypeGUI        = 1
	UserTypeWebService = 2
	UserTypeSouthbound = 3
)

// Privilege access levels.
const (
	AccessLevelReadOnly  = 1
	AccessLevelReadWrite = 2
)

// User is an account able to open sessions. Password holds the bcrypt hash.
type User struct {
	ID           string      `crud:"pk,property:_uuid" json:"id"`
	Name         string      `crud:"property:name" json:"name"`
	Password     string      `crud:"property:password" json:"-"`
	FirstName    string      `crud:"property:firstName,omitempty" json:"firstName,omitempty"`
	LastName     string      `crud:"property:lastName,omitempty" json:"lastName,omitempty"`
	Enabled      bool        `crud:"property:enabled" json:"enabled"`
	Type         int         `crud:"property:type" json:"type"`
	CreationDate int64       `crud:"property:creationDate" json:"creationDate"`
	Privileges   []Privilege `json:"privileges,omitempty"`
}

func (User) NodeLabel() string { return graph.LabelUsers }

// Group bundles users sharing privileges.
type Group struct {
	ID           string      `crud:"pk,property:_uuid" json:"id"`
	Name         string      `crud:"property:name" json:"name"`
	Description  string      `crud:"property:description,omitempty" json:"description,omitempty"`
	CreationDate int64       `crud:"property:creationDate" json:"creationDate"`
	Privileges   []Privilege `json:"privileges,omitempty"`
}

func (Group) NodeLabel() string { return graph.LabelGroups }

// Privilege grants an access level to a feature.
type Privilege struct {
	ID           string `crud:"pk,property:_uuid" json:"-"`
	FeatureToken string `crud:"property:featureToken" json:"featureToken"`
	AccessLevel  int    `crud:"property:accessLevel" json:"accessLevel"`
}

func (Privilege) NodeLabel() string { return graph.LabelPrivileges }

// View is an object related or general view. Background is the name of the
// background blob in the file store, BackgroundData its content when read.
type View struct {
	ID             string `crud:"pk,property:_uuid" json:"id"`
	Name           string `crud:"property:name" json:"name"`
	Description    string `crud:"property:description,omitempty" json:"description,omitempty"`
	ClassName      string `crud:"property:className" json:"className"`
	Structure      []byte `crud:"property:structure" json:"structure,omitempty"`
	Background     string `crud:"property:background,omitempty" json:"-"`
	BackgroundData []byte `json:"background,omitempty"`
}

type objectView View

func (objectView) NodeLabel() string { return graph.LabelObjectViews }

type generalView View

func (generalView) NodeLabel() string { return graph.LabelGeneralViews }

// Query is a stored extended query. Structure is opaque to the repository.
type Query struct {
	ID          string `crud:"pk,property:_uuid" json:"id"`
	Name        string `crud:"property:name" json:"name"`
	Description string `crud:"property:description,omitempty" json:"description,omitempty"`
	Structure   []byte `crud:"property:structure" json:"structure"`
	Public      bool   `crud:"property:public" json:"public"`
	OwnerID     string `json:"ownerId,omitempty"`
}

func (Query) NodeLabel() string { return graph.LabelQueries }

// Task execution types.
const (
	ExecutionTypeOnDemand = 0
	ExecutionTypeSystem   = 1
	ExecutionTypeLoop     = 2
	ExecutionTypeStartup  = 3
)

// Task notification types.
const (
	NotificationNone   = 0
	NotificationClient = 1
	NotificationEmail  = 2
)

// Task is a stored script run on demand or on a schedule.
type Task struct {
	ID               string            `crud:"pk,property:_uuid" json:"id"`
	Name             string            `crud:"property:name" json:"name"`
	Description      string            `crud:"property:description,omitempty" json:"description,omitempty"`
	Enabled          bool              `crud:"property:enabled" json:"enabled"`
	CommitOnExecute  bool              `crud:"property:commitOnExecute" json:"commitOnExecute"`
	Script           string            `crud:"property:script,omitempty" json:"script,omitempty"`
	ExecutionType    int               `crud:"property:executionType" json:"executionType"`
	EveryXMinutes    int64             `crud:"property:everyXMinutes" json:"everyXMinutes"`
	StartTime        int64             `crud:"property:startTime" json:"startTime"`
	NotificationType int               `crud:"property:notificationType" json:"notificationType"`
	Email            string            `crud:"property:email,omitempty" json:"email,omitempty"`
	Parameters       map[string]string `json:"parameters,omitempty"`
}

func (Task) NodeLabel() string { return graph.LabelTasks }

// TaskSchedule is the schedule part of a task.
type TaskSchedule struct {
	ExecutionType int
	EveryXMinutes int64
	StartTime     int64
}

// Business rule types and scopes.
const (
	RuleTypeRelationshipByAttributeValue = 1
	RuleTypeAll                          = -1

	RuleScopeGlobal = 1
	RuleScopeLocal  = 2
)

// BusinessRule is a stored rule. The meaning of the constraint slots depends
// on the rule type.
type BusinessRule struct {
	ID           string `crud:"pk,property:_uuid" json:"id"`
	Name         string `crud:"property:name" json:"name"`
	Description  string `crud:"property:description,omitempty" json:"description,omitempty"`
	Type         int    `crud:"property:type" json:"type"`
	Scope        int    `crud:"property:scope" json:"scope"`
	AppliesTo    string `crud:"property:appliesTo" json:"appliesTo"`
	Version      string `crud:"property:version,omitempty" json:"version,omitempty"`
	CreationDate int64  `crud:"property:creationDate" json:"creationDate"`
	Constraint1  string `crud:"property:constraint1,omitempty" json:"constraint1,omitempty"`
	Constraint2  string `crud:"property:constraint2,omitempty" json:"constraint2,omitempty"`
	Constraint3  string `crud:"property:constraint3,omitempty" json:"constraint3,omitempty"`
	Constraint4  string `crud:"property:constraint4,omitempty" json:"constraint4,omitempty"`
	Constraint5  string `crud:"property:constraint5,omitempty" json:"constraint5,omitempty"`
}

func (BusinessRule) NodeLabel() string { return graph.LabelBusinessRules }

// Constraints returns the constraint slots in order.
func (b *BusinessRule) Constraints() []string {
	return []string{b.Constraint1, b.Constraint2, b.Constraint3, b.Constraint4, b.Constraint5}
}

// SetConstraints fills the constraint slots. Missing slots are cleared.
func (b *BusinessRule) SetConstraints(constraints ...string) {
	slots := []*string{&b.Constraint1, &b.Constraint2, &b.Constraint3, &b.Constraint4, &b.Constraint5}
	for i, s := range slots {
		*s = ""
		if i < len(constraints) {
			*s = constraints[i]
		}
	}
}

// RelationshipRule is the typed reading of a relationship by attribute value
// rule: a relationship from AppliesTo to TargetClass is allowed if the source
// attribute holds SourceValue and the target attribute holds TargetValue.
type RelationshipRule struct {
	TargetClass     string
	SourceAttribute string
	TargetAttribute string
	SourceValue     string
	TargetValue     string
}

// RelationshipRule reads the constraint slots. The class and attribute slots
// must be present, empty values match anything.
func (b *BusinessRule) RelationshipRule() (*RelationshipRule, bool) {
	c := b.Constraints()
	for _, s := range c[:3] {
		if s == "" {
			return nil, false
		}
	}
	return &RelationshipRule{
		TargetClass:     c[0],
		SourceAttribute: c[1],
		TargetAttribute: c[2],
		SourceValue:     c[3],
		TargetValue:     c[4],
	}, true
}

// SyncGroup bundles synchronization data source configurations.
type SyncGroup struct {
	ID   string `crud:"pk,property:_uuid" json:"id"`
	Name string `crud:"property:name" json:"name"`
}

func (SyncGroup) NodeLabel() string { return graph.LabelSyncGroups }

// SyncDataSourceConfig describes how to synchronize an inventory object with
// an external source.
type SyncDataSourceConfig struct {
	ID         string            `crud:"pk,property:_uuid" json:"id"`
	Name       string            `crud:"property:name" json:"name"`
	ObjectID   string            `json:"objectId,omitempty"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

func (SyncDataSourceConfig) NodeLabel() string { return graph.LabelSyncDataSources }

// Configuration variable types.
const (
	VariableTypeString  = 0
	VariableTypeInteger = 1
	VariableTypeFloat   = 2
	VariableTypeBoolean = 3
	VariableTypeArray   = 4
	VariableTypeTable   = 5
)

// ConfigVariablesPool groups configuration variables.
type ConfigVariablesPool struct {
	ID          string `crud:"pk,property:_uuid" json:"id"`
	Name        string `crud:"property:name" json:"name"`
	Description string `crud:"property:description,omitempty" json:"description,omitempty"`
}

func (ConfigVariablesPool) NodeLabel() string { return graph.LabelConfigVariablesPools }

// ConfigVariable is a named, typed configuration value.
type ConfigVariable struct {
	ID          string `crud:"pk,property:_uuid" json:"id"`
	Name        string `crud:"property:name" json:"name"`
	Description string `crud:"property:description,omitempty" json:"description,omitempty"`
	Type        int    `crud:"property:type" json:"type"`
	Masked      bool   `crud:"property:masked" json:"masked"`
	Value       string `crud:"property:value" json:"value"`
	PoolID      string `json:"poolId,omitempty"`
}

func (ConfigVariable) NodeLabel() string { return graph.LabelConfigVariables }

// ValidatorDefinition runs a script on objects of a class and its subclasses.
type ValidatorDefinition struct {
	ID          string `crud:"pk,property:_uuid" json:"id"`
	Name        string `crud:"property:name" json:"name"`
	Description string `crud:"property:description,omitempty" json:"description,omitempty"`
	ClassName   string `crud:"property:className" json:"className"`
	Script      string `crud:"property:script" json:"script"`
	Enabled     bool   `crud:"property:enabled" json:"enabled"`
}

func (ValidatorDefinition) NodeLabel() string { return graph.LabelValidatorDefinitions }

// Report types and output types.
const (
	ReportTypeClassLevel     = 1
	ReportTypeInventoryLevel = 2

	ReportOutputCSV  = 1
	ReportOutputHTML = 2
	ReportOutputPDF  = 3
	ReportOutputXLSX = 4
)

// Report is a stored script producing a document.
type Report struct {
	ID          string            `crud:"pk,property:_uuid" json:"id"`
	Name        string            `crud:"property:name" json:"name"`
	Description string            `crud:"property:description,omitempty" json:"description,omitempty"`
	Script      string            `crud:"property:script" json:"script"`
	OutputType  int               `crud:"property:outputType" json:"outputType"`
	Enabled     bool              `crud:"property:enabled" json:"enabled"`
	Type        int               `crud:"property:type" json:"type"`
	ClassName   string            `crud:"property:className,omitempty" json:"className,omitempty"`
	Parameters  map[string]string `json:"parameters,omitempty"`
}

func (Report) NodeLabel() string { return graph.LabelReports }

// FavoritesFolder is a user owned bookmark folder.
type FavoritesFolder struct {
	ID   string `crud:"pk,property:_uuid" json:"id"`
	Name string `crud:"property:name" json:"name"`
}

func (FavoritesFolder) NodeLabel() string { return graph.LabelFavoritesFolders }

// ProcessInstance is a running instance of a process definition.
type ProcessInstance struct {
	ID                  string            `crud:"pk,property:_uuid" json:"id"`
	Name                string            `crud:"property:name" json:"name"`
	Description         string            `crud:"property:description,omitempty" json:"description,omitempty"`
	ProcessDefinitionID string            `crud:"property:processDefinitionId" json:"processDefinitionId"`
	CurrentActivityID   string            `crud:"property:currentActivity,omitempty" json:"currentActivity,omitempty"`
	Artifacts           map[string]string `json:"artifacts,omitempty"`
}

func (ProcessInstance) NodeLabel() string { return graph.LabelProcessInstances }

// Activity log entry types.
const (
	ActivityCreateInventoryObject   = 1
	ActivityUpdateInventoryObject   = 2
	ActivityDeleteInventoryObject   = 3
	ActivityCreateMetadataObject    = 4
	ActivityUpdateMetadataObject    = 5
	ActivityDeleteMetadataObject    = 6
	ActivityCreateApplicationObject = 7
	ActivityUpdateApplicationObject = 8
	ActivityDeleteApplicationObject = 9
	ActivityMassiveDeleteObject     = 10
	ActivityOpenSession             = 11
	ActivityCloseSession            = 12
)

// ActivityLogEntry is one entry of an audit trail.
type ActivityLogEntry struct {
	ID               string `crud:"pk,property:_uuid" json:"id"`
	Type             int    `crud:"property:type" json:"type"`
	CreationDate     int64  `crud:"property:creationDate" json:"creationDate"`
	AffectedProperty string `crud:"property:affectedProperty,omitempty" json:"affectedProperty,omitempty"`
	OldValue         string `crud:"property:oldValue,omitempty" json:"oldValue,omitempty"`
	NewValue         string `crud:"property:newValue,omitempty" json:"newValue,omitempty"`
	Notes            string `crud:"property:notes,omitempty" json:"notes,omitempty"`
	UserName         string `json:"userName"`
}

func (ActivityLogEntry) NodeLabel() string { return graph.LabelHistoryEntries }

var (
	users         = record.MustNew[User]()
	groups        = record.MustNew[Group]()
	privileges    = record.MustNew[Privilege]()
	objectViews   = record.MustNew[objectView]()
	generalViews  = record.MustNew[generalView]()
	queries       = record.MustNew[Query]()
	tasks         = record.MustNew[Task]()
	businessRules = record.MustNew[BusinessRule]()
	syncGroups    = record.MustNew[SyncGroup]()
	syncConfigs   = record.MustNew[SyncDataSourceConfig]()
	variablePools = record.MustNew[ConfigVariablesPool]()
	variables     = record.MustNew[ConfigVariable]()
	validatorDefs = record.MustNew[ValidatorDefinition]()
	reports       = record.MustNew[Report]()
	favorites     = record.MustNew[FavoritesFolder]()
	processes     = record.MustNew[ProcessInstance]()
	logEntries    = record.MustNew[ActivityLogEntry]()
)

// Prefixes of dynamic parameter properties.
const (
	parameterPrefix = "parameter."
	artifactPrefix  = "artifact."
)

// prefixed collects the properties of a node starting with prefix.
func prefixed(n *graph.Node, prefix string) map[string]string {
	result := map[string]string{}
	for k, v := range n.Props {
		if strings.HasPrefix(k, prefix) {
			result[strings.TrimPrefix(k, prefix)] = graph.FormatValue(v)
		}
	}
	return result
}

// prefixedProps renders values as prefixed properties. Empty values remove
// the property.
func prefixedProps(prefix string, values map[string]string) graph.Props {
	props := graph.Props{}
	for k, v := range values {
		if v == "" {
			props[prefix+k] = nil
		} else {
			props[prefix+k] = v
		}
	}
	return props
}
