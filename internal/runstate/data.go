package runstate

// Row is one record returned by the project data store.
type Row = map[string]any

// Canvas is the architecture graph.
type Canvas struct {
	Nodes []Row `json:"nodes"`
	Edges []Row `json:"edges"`
}

// RepoStructure is the repository list and the union of their file lists.
type RepoStructure struct {
	Repos []Row `json:"repos"`
	Files []Row `json:"files"`
}

// CollectedData holds one field per project sub-resource. A field is set
// exactly once by its collector step; missing data is an empty value.
type CollectedData struct {
	Settings       Row           `json:"settings"`
	Requirements   []Row         `json:"requirements"`
	Artifacts      []Row         `json:"artifacts"`
	Specifications []Row         `json:"specifications"`
	Canvas         Canvas        `json:"canvas"`
	RepoStructure  RepoStructure `json:"repoStructure"`
	Databases      []Row         `json:"databases"`
	Connections    []Row         `json:"connections"`
	Deployments    []Row         `json:"deployments"`
}

// NewCollectedData returns a record with every field empty rather than nil.
func NewCollectedData() CollectedData {
	return CollectedData{
		Settings:       Row{},
		Requirements:   []Row{},
		Artifacts:      []Row{},
		Specifications: []Row{},
		Canvas:         Canvas{Nodes: []Row{}, Edges: []Row{}},
		RepoStructure:  RepoStructure{Repos: []Row{}, Files: []Row{}},
		Databases:      []Row{},
		Connections:    []Row{},
		Deployments:    []Row{},
	}
}

// ProjectName returns the project's display name, or "Untitled Project".
func (d CollectedData) ProjectName() string {
	if name, ok := d.Settings["name"].(string); ok && name != "" {
		return name
	}
	return "Untitled Project"
}

// ProjectDescription returns the project's description, or "".
func (d CollectedData) ProjectDescription() string {
	desc, _ := d.Settings["description"].(string)
	return desc
}

// Metrics are the aggregate figures derived once all reads complete.
type Metrics struct {
	CompletionScore        int    `json:"completionScore"`
	Stage                  string `json:"stage"`
	RequirementCount       int    `json:"requirementCount"`
	ArchitectureComponents int    `json:"architectureComponents"`
	FileCount              int    `json:"fileCount"`
	SpecificationCount     int    `json:"specificationCount"`
	ArtifactCount          int    `json:"artifactCount"`
	DatabaseCount          int    `json:"databaseCount"`
	DeploymentCount        int    `json:"deploymentCount"`
}
