package chart

// Config is a complete Chart.js chart description.
type Config struct {
	Type    Kind    `json:"type"`
	Data    Data    `json:"data"`
	Options Options `json:"options"`
}

// Options is the subset of Chart.js options the dashboard uses.
type Options struct {
	Responsive bool     `json:"responsive,omitempty"`
	Scales     *Scales  `json:"scales,omitempty"`
	Plugins    *Plugins `json:"plugins,omitempty"`
}

type Scales struct {
	X *Axis `json:"x,omitempty"`
	Y *Axis `json:"y,omitempty"`
}

type Axis struct {
	Type        string `json:"type,omitempty"`
	Position    string `json:"position,omitempty"`
	BeginAtZero bool   `json:"beginAtZero,omitempty"`
}

type Plugins struct {
	Legend *Legend `json:"legend,omitempty"`
	Title  *Title  `json:"title,omitempty"`
}

type Legend struct {
	Position string `json:"position"`
}

type Title struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

// Chart titles.
const (
	DoughnutTitle = "Movie Distribution by Genre"
	ScatterTitle  = "Critic vs Audience Scores"
)

// StyleFor returns the fixed style options of a chart kind.
// A fresh value is returned on every call.
func StyleFor(k Kind) Options {
	switch k {
	case KindDoughnut:
		return Options{
			Responsive: true,
			Plugins: &Plugins{
				Legend: &Legend{Position: "top"},
				Title:  &Title{Display: true, Text: DoughnutTitle},
			},
		}
	case KindScatter:
		return Options{
			Scales: &Scales{
				X: &Axis{Type: "linear", Position: "bottom"},
				Y: &Axis{BeginAtZero: true},
			},
			Plugins: &Plugins{
				Title: &Title{Display: true, Text: ScatterTitle},
			},
		}
	default:
		return Options{
			Scales: &Scales{Y: &Axis{BeginAtZero: true}},
		}
	}
}

// NewConfig builds the configuration used when a chart is first created.
func NewConfig(k Kind, data Data) Config {
	return Config{Type: k, Data: data, Options: StyleFor(k)}
}
