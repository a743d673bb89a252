// Command psdcli inspects and exports PSD/PSB documents from the
// command line: modeled on pdfcpu's flat dispatch (a switch on the first
// argument, then one flag.FlagSet per command) rather than a subcommand
// framework, since that's the only pattern the pack shows for a Go CLI.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"os"

	"github.com/layerkit/psd"
)

const version = "0.1.0"

const usage = `psdcli is a tool for inspecting and exporting PSD/PSB documents.

Usage:

	psdcli <command> [arguments]

Commands:

	show     print the document header, resources, and layer tree
	export   render a layer (or the whole document) to a PNG file
	debug    dump the raw tagged-block/resource inventory

Use "psdcli <command> -h" to list a command's flags.
`

func main() {
	if len(os.Args) == 1 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "-h", "--help", "help":
		fmt.Fprint(os.Stderr, usage)
	case "--version", "-v":
		fmt.Printf("psdcli version %s\n", version)
	case "show":
		runShow(os.Args[2:])
	case "export":
		runExport(os.Args[2:])
	case "debug":
		runDebug(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "psdcli: unknown command %q\n\n", os.Args[1])
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func openDoc(path string) *psd.Document {
	f, err := os.Open(path)
	if err != nil {
		fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	doc, err := psd.Open(f, nil)
	if err != nil {
		fatalf("parse %s: %v", path, err)
	}
	return doc
}

func runShow(args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	tree := fs.Bool("tree", true, "print the logical layer tree")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fatalf("usage: psdcli show [-tree] <file.psd>")
	}

	doc := openDoc(fs.Arg(0))
	h := doc.Header()
	fmt.Printf("%s  %dx%d  %s  %d channels  %d-bit  %d resources  %d layers\n",
		fs.Arg(0), h.Width(), h.Height(), h.ModeName(), h.Channels, h.Depth,
		len(doc.Resources().Resources), len(doc.Layers()))

	if *tree {
		printNode(doc.Root(), 0)
	}
}

func printNode(n psd.Node, depth int) {
	for i := 0; i < depth; i++ {
		fmt.Print("  ")
	}
	kind := "layer"
	if n.IsGroup() {
		kind = "group"
	}
	if n.IsRoot() {
		kind = "root"
	}
	fmt.Printf("- [%s] %s (%dx%d)\n", kind, n.Name(), n.Width(), n.Height())
	for _, c := range n.Children() {
		printNode(c, depth+1)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	layerPath := fs.String("layer", "", "slash-separated path of the layer/group to export; default is the whole document")
	out := fs.String("o", "out.png", "output PNG path")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fatalf("usage: psdcli export [-layer path] [-o out.png] <file.psd>")
	}

	doc := openDoc(fs.Arg(0))
	node := doc.Root()
	if *layerPath != "" {
		matches := doc.Root().ChildrenAtPath(*layerPath)
		if len(matches) == 0 {
			fatalf("export: no node at path %q", *layerPath)
		}
		node = matches[0]
	}

	img, err := node.ToPNG()
	if err != nil {
		fatalf("export: %v", err)
	}

	f, err := os.Create(*out)
	if err != nil {
		fatalf("export: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		fatalf("export: encode png: %v", err)
	}
	fmt.Printf("wrote %s\n", *out)
}

func runDebug(args []string) {
	fs := flag.NewFlagSet("debug", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fatalf("usage: psdcli debug <file.psd>")
	}

	doc := openDoc(fs.Arg(0))

	fmt.Println("image resources:")
	for _, r := range doc.Resources().Resources {
		fmt.Printf("  id=%d name=%q %d bytes\n", r.ID, r.Name, len(r.Data))
	}

	fmt.Println("global additional layer info:")
	for _, b := range doc.TaggedBlocks() {
		fmt.Printf("  key=%q big=%v %d bytes\n", b.Key, b.Big, len(b.Data))
	}

	fmt.Println("layers:")
	for i, l := range doc.Layers() {
		fmt.Printf("  %d: %q blend=%s opacity=%d %dx%d\n", i, l.Name, l.BlendMode, l.Opacity, l.Width(), l.Height())
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "psdcli: "+format+"\n", args...)
	os.Exit(1)
}
