package lens

// Options control the visual attributes that do not depend on scores.
type Options struct {
	DefaultBorderWidth float64 `json:"defaultBorderWidth"`
	MinScoredBorder    float64 `json:"minScoredBorder"`
	BorderScale        float64 `json:"borderScale"`
	NodeSize           int     `json:"nodeSize"`
	Physics            bool    `json:"physics"`
}

// DefaultOptions returns the standard rendering options.
func DefaultOptions() Options {
	return Options{
		DefaultBorderWidth: 2,
		MinScoredBorder:    3,
		BorderScale:        5,
		NodeSize:           16,
		Physics:            true,
	}
}

// GraphNode is a node of the render model.
type GraphNode struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Title       string  `json:"title,omitempty"` // tooltip
	Color       string  `json:"color"`
	BorderWidth float64 `json:"borderWidth"`
	Size        int     `json:"size"`
	Reference   bool    `json:"reference,omitempty"`
	Scored      bool    `json:"scored,omitempty"`
}

// GraphEdge is an edge of the render model.
type GraphEdge struct {
	ID       string  `json:"id"`
	Source   string  `json:"from"`
	Target   string  `json:"to"`
	Label    string  `json:"label"`
	Color    string  `json:"color"`
	NetScore float64 `json:"netScore"`
}

// GraphData is the complete render model handed to a surface.
type GraphData struct {
	Nodes   []GraphNode `json:"nodes"`
	Edges   []GraphEdge `json:"edges"`
	Physics bool        `json:"physics"`
}
