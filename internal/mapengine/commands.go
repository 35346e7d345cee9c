package mapengine

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-trees/internal/expr"
)

// Op names a command.
type Op string

const (
	OpSetData       Op = "setData"
	OpSetVisibility Op = "setVisibility"
	OpSetFilter     Op = "setFilter"
	OpFitBounds     Op = "fitBounds"
	OpShowCard      Op = "showCard"
	OpShowLegend    Op = "showLegend"
	OpShowSpecies   Op = "showSpecies"
	OpShowYears     Op = "showYears"
)

// Command is one instruction to the viewer.
type Command struct {
	Op      Op                         `json:"op"`
	Source  string                     `json:"source,omitempty"`
	Layer   string                     `json:"layer,omitempty"`
	Data    *geojson.FeatureCollection `json:"data,omitempty"`
	Visible *bool                      `json:"visible,omitempty"`
	Filter  expr.Expr                  `json:"filter,omitempty"`
	Bounds  *[4]float64                `json:"bounds,omitempty"`
	Card    *Card                      `json:"card,omitempty"`
	Legend  *Legend                    `json:"legend,omitempty"`
	Species *SpeciesList               `json:"species,omitempty"`
	Years   *YearRanges                `json:"years,omitempty"`
}

// Commands implements Map and Panel by turning every call into a Command
// handed to Emit.
type Commands struct {
	Emit func(Command)
}

func (c *Commands) emit(cmd Command) {
	if c.Emit != nil {
		c.Emit(cmd)
	}
}

func (c *Commands) SetSourceData(source string, data *geojson.FeatureCollection) {
	if data == nil {
		data = geojson.NewFeatureCollection()
	}
	c.emit(Command{Op: OpSetData, Source: source, Data: data})
}

func (c *Commands) SetLayerVisibility(layer string, visible bool) {
	c.emit(Command{Op: OpSetVisibility, Layer: layer, Visible: &visible})
}

// SetFilter installs filter on layer. A nil filter removes it.
func (c *Commands) SetFilter(layer string, filter expr.Expr) {
	c.emit(Command{Op: OpSetFilter, Layer: layer, Filter: filter})
}

// FitBounds sends [west, south, east, north].
func (c *Commands) FitBounds(b orb.Bound) {
	bb := [4]float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
	c.emit(Command{Op: OpFitBounds, Bounds: &bb})
}

func (c *Commands) ShowCard(card Card) {
	c.emit(Command{Op: OpShowCard, Card: &card})
}

func (c *Commands) ShowLegend(legend Legend) {
	c.emit(Command{Op: OpShowLegend, Legend: &legend})
}

func (c *Commands) ShowSpecies(list SpeciesList) {
	c.emit(Command{Op: OpShowSpecies, Species: &list})
}

func (c *Commands) ShowYears(years YearRanges) {
	c.emit(Command{Op: OpShowYears, Years: &years})
}

// Recorder collects commands in order.
type Recorder struct {
	Commands
	Log []Command
}

// NewRecorder returns a Recorder ready for use.
func NewRecorder() *Recorder {
	r := &Recorder{}
	r.Emit = func(cmd Command) { r.Log = append(r.Log, cmd) }
	return r
}

// Reset drops recorded commands.
func (r *Recorder) Reset() { r.Log = nil }

// Ops filters the log by operation.
func (r *Recorder) Ops(op Op) []Command {
	var out []Command
	for _, c := range r.Log {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Last returns the most recent command for op and target, where target is
// the source or layer name.
func (r *Recorder) Last(op Op, target string) (Command, bool) {
	for i := len(r.Log) - 1; i >= 0; i-- {
		c := r.Log[i]
		if c.Op == op && (target == "" || c.Source == target || c.Layer == target) {
			return c, true
		}
	}
	return Command{}, false
}

var (
	_ Map   = (*Commands)(nil)
	_ Panel = (*Commands)(nil)
)
