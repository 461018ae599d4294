package output

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/promptpack/promptpack/pkg/trace"
)

const (
	plotWidth      = "100%"
	plotHeight     = "800px"
	forceRepulsion = 400
	internalSymbol = 12
	externalSymbol = 8
	internalColor  = "#5470c6"
	externalColor  = "#91cc75"
	plotFilePerm   = 0o644
)

// WritePlot renders the dependency graph as a force-directed chart and
// writes it as a standalone HTML file.
func WritePlot(path string, graph *trace.Graph) error {
	chart := charts.NewGraph()
	chart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: plotWidth, Height: plotHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Dependency graph"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	nodes := make([]opts.GraphNode, 0, len(graph.Nodes)+len(graph.Externals))

	for _, node := range graph.Nodes {
		nodes = append(nodes, opts.GraphNode{
			Name:       node,
			SymbolSize: internalSymbol,
			ItemStyle:  &opts.ItemStyle{Color: internalColor},
		})
	}

	for _, external := range graph.Externals {
		nodes = append(nodes, opts.GraphNode{
			Name:       external,
			SymbolSize: externalSymbol,
			ItemStyle:  &opts.ItemStyle{Color: externalColor},
		})
	}

	var links []opts.GraphLink

	for _, node := range graph.Nodes {
		for _, edge := range graph.Edges[node] {
			links = append(links, opts.GraphLink{Source: edge.From, Target: edge.To})
		}
	}

	chart.AddSeries("dependencies", nodes, links,
		charts.WithGraphChartOpts(opts.GraphChart{
			Layout:     "force",
			Force:      &opts.GraphForce{Repulsion: forceRepulsion},
			Roam:       opts.Bool(true),
			EdgeSymbol: []string{"none", "arrow"},
		}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "right"}),
	)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, plotFilePerm)
	if err != nil {
		return fmt.Errorf("create plot file %s: %w", path, err)
	}
	defer file.Close()

	if renderErr := chart.Render(file); renderErr != nil {
		return fmt.Errorf("render plot: %w", renderErr)
	}

	return nil
}
