// Package graphviz implements a layout solver backed by Graphviz dot.
//
// # Overview
//
// Each container of a layout request is solved by its own dot run: the
// container's children become fixed-size box nodes, its edges become dot
// edges (ordering hints are drawn invisible), and the container's direction
// selects rankdir TB or LR. Containers are solved deepest first, so that a
// child container's final size is known before its parent is laid out.
//
// dot is run in-process through github.com/goccy/go-graphviz, which embeds
// Graphviz as WebAssembly. Instances are not safe for concurrent use, so the
// solver keeps a pool of them, one per worker:
//
//	s, err := graphviz.New(ctx, graphviz.Options{Workers: 4})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	res, err := s.Solve(ctx, req)
//
// # Coordinates
//
// Results are read back in Graphviz's "plain" output format, whose
// coordinates are node centers in inches with the origin at the bottom left.
// They are converted to top-left pixel coordinates relative to the
// container's content origin, with the content's top-left corner at (0, 0).
package graphviz
