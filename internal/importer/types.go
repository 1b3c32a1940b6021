package importer

// Definition is one device-type definition file. The file layout follows
// the community device-type library: identity fields at the top, then one
// list per component category, hyphenated.
type Definition struct {
	Manufacturer string `yaml:"manufacturer"`
	Model        string `yaml:"model"`
	Slug         string `yaml:"slug"`
	PartNumber   string `yaml:"part_number"`
	UHeight      int    `yaml:"u_height"`
	IsFullDepth  *bool  `yaml:"is_full_depth"`

	Interfaces         []ComponentDef `yaml:"interfaces"`
	ConsolePorts       []ComponentDef `yaml:"console-ports"`
	ConsoleServerPorts []ComponentDef `yaml:"console-server-ports"`
	PowerPorts         []ComponentDef `yaml:"power-ports"`
	PowerOutlets       []ComponentDef `yaml:"power-outlets"`
	FrontPorts         []ComponentDef `yaml:"front-ports"`
	RearPorts          []ComponentDef `yaml:"rear-ports"`
	DeviceBays         []ComponentDef `yaml:"device-bays"`
}

// ComponentDef is one component entry in a definition file. The shared
// fields apply to every category; the rest only to theirs and are ignored
// elsewhere.
type ComponentDef struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`

	MgmtOnly         *bool  `yaml:"mgmt_only"`
	MaximumDraw      *int   `yaml:"maximum_draw"`
	AllocatedDraw    *int   `yaml:"allocated_draw"`
	FeedLeg          string `yaml:"feed_leg"`
	RearPortPosition *int   `yaml:"rear_port_position"`
	Positions        *int   `yaml:"positions"`
}
