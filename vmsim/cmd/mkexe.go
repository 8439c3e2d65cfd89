package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vmsim/noff"
)

var mkexeCmd = &cobra.Command{
	Use:   "mkexe [output]",
	Short: "Create a NOFF executable.",
	Long: "`mkexe out.noff --code-size 512` writes an executable whose code " +
		"segment is filled with a recognizable pattern. `--code file` uses " +
		"the contents of a file instead.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		codeFile, _ := cmd.Flags().GetString("code")
		codeSize, _ := cmd.Flags().GetInt("code-size")
		dataSize, _ := cmd.Flags().GetInt("data-size")
		uninitSize, _ := cmd.Flags().GetInt("uninit-size")

		code, err := codeSegment(codeFile, codeSize)
		if err != nil {
			fatalf("Error reading code: %v", err)
		}

		if dataSize < 0 || uninitSize < 0 {
			fatalf("Error: segment sizes must not be negative.")
		}

		exe := noff.Build(code, pattern(dataSize, 0x80), uninitSize)

		err = os.WriteFile(args[0], exe, 0o644)
		if err != nil {
			fatalf("Error writing executable: %v", err)
		}

		fmt.Printf("Executable '%s' created (%d bytes in memory).\n",
			args[0], len(code)+dataSize+uninitSize)
	},
}

func init() {
	rootCmd.AddCommand(mkexeCmd)
	mkexeCmd.Flags().String("code", "", "File holding the code segment")
	mkexeCmd.Flags().Int("code-size", 512, "Size of a generated code segment")
	mkexeCmd.Flags().Int("data-size", 0, "Size of the initialized data segment")
	mkexeCmd.Flags().Int("uninit-size", 0, "Size of the uninitialized data segment")
}

func codeSegment(file string, size int) ([]byte, error) {
	if file != "" {
		return os.ReadFile(file)
	}

	if size < 0 {
		return nil, fmt.Errorf("code size must not be negative, got %d", size)
	}

	return pattern(size, 0), nil
}

// pattern returns n bytes counting up from start, wrapping at 256.
func pattern(n int, start byte) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = start + byte(i)
	}

	return buf
}
