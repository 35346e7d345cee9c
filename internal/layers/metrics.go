package layers

import (
	"fmt"

	"github.com/joeblew999/plat-trees/internal/i18n"
	"github.com/joeblew999/plat-trees/internal/mapengine"
)

// Metric is a neighbourhood statistic the overlay can be colored by.
type Metric string

const (
	Heat     Metric = "heat"
	NoiseEq  Metric = "noise_eq"
	NoiseP50 Metric = "noise_p50"
	PM25     Metric = "pm25"
)

// Metrics in selector order.
var Metrics = []Metric{Heat, NoiseEq, NoiseP50, PM25}

// DefaultMetric is shown until the user picks another one.
const DefaultMetric = Heat

var palette = [5]string{"#ffffb2", "#fecc5c", "#fd8d3c", "#f03b20", "#bd0026"}

func stops(thresholds ...float64) []mapengine.Stop {
	out := make([]mapengine.Stop, len(thresholds))
	for i, t := range thresholds {
		out[i] = mapengine.Stop{Threshold: t, Color: palette[i]}
	}
	return out
}

// metrics holds five ascending color classes per metric.
var metrics = map[Metric][]mapengine.Stop{
	Heat:     stops(1, 2, 3, 4, 5),
	NoiseEq:  stops(45, 50, 55, 60, 65),
	NoiseP50: stops(40, 45, 50, 55, 60),
	PM25:     stops(5, 7, 9, 11, 13),
}

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, error) {
	m := Metric(s)
	if _, ok := metrics[m]; !ok {
		return "", fmt.Errorf("unknown metric %q", s)
	}
	return m, nil
}

// Stops returns a copy of the metric's color classes.
func Stops(m Metric) []mapengine.Stop {
	return append([]mapengine.Stop(nil), metrics[m]...)
}

// LegendFor builds the legend of a metric in lang.
func LegendFor(m Metric, lang i18n.Lang) mapengine.Legend {
	return mapengine.Legend{
		Metric: string(m),
		Title:  i18n.Label(lang, string(m)),
		Stops:  Stops(m),
	}
}
