package disk

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Rudd3r/sdprep/pkg/domain"
	"golang.org/x/term"
)

// Confirm asks on w whether img may overwrite device and reads the answer from r.
// Anything but y or yes declines.
func Confirm(r io.Reader, w io.Writer, img, device string) (bool, error) {
	if _, err := fmt.Fprintf(w, "Write %s to %s? All data on %s will be lost [y/N]: ", img, device, device); err != nil {
		return false, err
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// TerminalConfirm prompts when in is a terminal and refuses otherwise.
func TerminalConfirm(in *os.File, out io.Writer) func(img, device string) (bool, error) {
	return func(img, device string) (bool, error) {
		if !term.IsTerminal(int(in.Fd())) {
			return false, fmt.Errorf("%w: stdin is not a terminal, pass --yes to flash %s", domain.ErrUsage, device)
		}
		return Confirm(in, out, img, device)
	}
}
