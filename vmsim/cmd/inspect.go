package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vmsim/noff"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [executable...]",
	Short: "Print the header of NOFF executables.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pageSize, _ := cmd.Flags().GetInt("page-size")
		stackSize, _ := cmd.Flags().GetInt("stack-size")

		for _, name := range args {
			err := inspectFile(os.Stdout, name, pageSize, stackSize)
			if err != nil {
				fatalf("Error inspecting %s: %v", name, err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Int("page-size", 128, "Page size used to count pages")
	inspectCmd.Flags().Int("stack-size", 1024, "User stack size added to the image")
}

func inspectFile(w io.Writer, name string, pageSize, stackSize int) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	h, err := noff.ReadHeader(f)
	if err != nil {
		return err
	}

	printHeader(w, name, h, pageSize, stackSize)

	return nil
}

func printHeader(
	w io.Writer,
	name string,
	h noff.Header,
	pageSize, stackSize int,
) {
	size := h.ImageSize() + stackSize
	numPages := (size + pageSize - 1) / pageSize

	fmt.Fprintf(w, "%s\n", name)
	fmt.Fprintf(w, "  magic:       %#x\n", h.Magic)
	printSegment(w, "code", h.Code)
	printSegment(w, "init data", h.InitData)
	printSegment(w, "uninit data", h.UninitData)
	fmt.Fprintf(w, "  image size:  %d bytes + %d stack\n", h.ImageSize(), stackSize)
	fmt.Fprintf(w, "  pages:       %d of %d bytes\n", numPages, pageSize)
}

func printSegment(w io.Writer, name string, s noff.Segment) {
	fmt.Fprintf(w, "  %-12s vaddr %#06x  file %#06x  size %d\n",
		name+":", s.VirtualAddr, s.InFileAddr, s.Size)
}
