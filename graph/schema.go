package graph

// Node labels.
const (
	LabelClasses              = "classes"
	LabelInventoryObjects     = "inventoryObjects"
	LabelListTypeItems        = "listTypeItems"
	LabelPools                = "pools"
	LabelTemplates            = "templates"
	LabelTemplateElements     = "templateElements"
	LabelSpecialNodes         = "specialNodes"
	LabelUsers                = "users"
	LabelGroups               = "groups"
	LabelPrivileges           = "privileges"
	LabelQueries              = "queries"
	LabelTasks                = "tasks"
	LabelBusinessRules        = "businessRules"
	LabelGeneralViews         = "generalViews"
	LabelObjectViews          = "objectViews"
	LabelHistoryEntries       = "historyEntries"
	LabelAttachments          = "attachments"
	LabelContacts             = "contacts"
	LabelReports              = "reports"
	LabelSyncGroups           = "syncGroups"
	LabelSyncDataSources      = "syncDatasourceConfiguration"
	LabelConfigVariablesPools = "configVariablesPools"
	LabelConfigVariables      = "configVariables"
	LabelValidatorDefinitions = "validatorDefinitions"
	LabelFavoritesFolders     = "favoritesFolders"
	LabelProcessInstances     = "processInstance"
)

// Relationship types.
const (
	RelInstanceOf         = "INSTANCE_OF"
	RelInstanceOfSpecial  = "INSTANCE_OF_SPECIAL"
	RelExtends            = "EXTENDS"
	RelChildOf            = "CHILD_OF"
	RelChildOfSpecial     = "CHILD_OF_SPECIAL"
	RelRelatedTo          = "RELATED_TO"
	RelRelatedToSpecial   = "RELATED_TO_SPECIAL"
	RelHasTemplate        = "HAS_TEMPLATE"
	RelHasView            = "HAS_VIEW"
	RelHasHistoryEntry    = "HAS_HISTORY_ENTRY"
	RelPerformedBy        = "PERFORMED_BY"
	RelHasAttachment      = "HAS_ATTACHMENT"
	RelHasProcessInstance = "HAS_PROCESS_INSTANCE"
	RelBelongsToGroup     = "BELONGS_TO_GROUP"
	RelHasPrivilege       = "HAS_PRIVILEGE"
	RelOwnsQuery          = "OWNS_QUERY"
	RelSubscribedTo       = "SUBSCRIBED_TO"
	RelHasReport          = "HAS_REPORT"
	RelHasConfiguration   = "HAS_CONFIGURATION"
	RelHasBookmark        = "HAS_BOOKMARK"
	RelIsBookmarkItemIn   = "IS_BOOKMARK_ITEM_IN"
	RelHasContact         = "HAS_CONTACT"
)

// Property keys.
const (
	PropUUID         = "_uuid"
	PropName         = "name"
	PropDisplayName  = "displayName"
	PropDescription  = "description"
	PropCreationDate = "creationDate"
	PropClassName    = "className"
	PropType         = "type"
	PropEnabled      = "enabled"
	PropScript       = "script"
	PropParent       = "parent"
	PropAbstract     = "abstract"
	PropInDesign     = "inDesign"
	PropTags         = "tags"
	PropSize         = "size"
	PropBackground   = "background"
)

// Well known values.
const (
	// RelPropPool marks a CHILD_OF_SPECIAL edge from a pool member to its pool.
	RelPropPool = "pool"
	// DummyRoot names the special node top level objects are attached to.
	DummyRoot = "DummyRoot"
	// DummyRootID is the id callers use to address the DummyRoot.
	DummyRootID = "-1"
	// RelPropMirror names the RELATED_TO_SPECIAL edge between mirrored ports.
	RelPropMirror = "mirror"
)
