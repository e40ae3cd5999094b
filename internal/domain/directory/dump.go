package directory

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/fold"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

// ErrUnknownDumpArg is returned for an unrecognised dump flag
var ErrUnknownDumpArg = fmt.Errorf("unknown dump argument: %w", types.WSErrorInvalidParam)

const dumpUsage = `usage: dump [option]
 -h   show this help
 -a   dump all sessions, screens and fold state
 -f   dump fold state
 -z   lock fold status to HALF_FOLD
 -y   lock fold status to EXPAND
 -p   lock fold status to FOLDED
 -r   release a locked fold status
`

// FoldSource is the fold engine view used by dumps
type FoldSource interface {
	Dump() fold.Dump
	LockStatus(status types.FoldStatus)
	UnlockStatus()
}

// Dumper renders human-readable state for diagnostics
type Dumper struct {
	dir  *Manager
	fold FoldSource
}

// NewDumper creates a dumper. fs may be nil on devices without a hinge.
func NewDumper(dir *Manager, fs FoldSource) *Dumper {
	return &Dumper{dir: dir, fold: fs}
}

// Dump writes the output for args to w. Unknown flags print usage and return ErrUnknownDumpArg.
func (d *Dumper) Dump(w io.Writer, args []string) error {
	if len(args) == 0 {
		_, err := io.WriteString(w, dumpUsage)
		return err
	}

	switch args[0] {
	case "-h":
		_, err := io.WriteString(w, dumpUsage)
		return err
	case "-a":
		d.dumpSessions(w)
		d.dumpScreens(w)
		d.dumpFold(w)
		return nil
	case "-f":
		d.dumpFold(w)
		return nil
	case "-z":
		return d.lock(w, types.FoldStatusHalfFold)
	case "-y":
		return d.lock(w, types.FoldStatusExpand)
	case "-p":
		return d.lock(w, types.FoldStatusFolded)
	case "-r":
		if d.fold == nil {
			return d.noFold(w)
		}
		d.fold.UnlockStatus()
		fmt.Fprintln(w, "fold status released")
		return nil
	default:
		io.WriteString(w, dumpUsage)
		fmt.Fprintf(w, "error: unknown argument %q\n", strings.Join(args, " "))
		return fmt.Errorf("%q: %w", args[0], ErrUnknownDumpArg)
	}
}

func (d *Dumper) lock(w io.Writer, status types.FoldStatus) error {
	if d.fold == nil {
		return d.noFold(w)
	}
	d.fold.LockStatus(status)
	fmt.Fprintf(w, "fold status locked to %s\n", status)
	return nil
}

func (d *Dumper) noFold(w io.Writer) error {
	fmt.Fprintln(w, "fold engine unavailable")
	return fmt.Errorf("fold engine: %w", types.WSErrorUnavailable)
}

func (d *Dumper) dumpSessions(w io.Writer) {
	sessions := d.dir.Sessions()
	fmt.Fprintf(w, "SessionInfos: %d\n", len(sessions))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBUNDLE\tSURFACE\tSTATE\tSCREEN\tRECT")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n",
			s.PersistentID, s.BundleName, s.SurfaceName, s.StateName, s.ScreenID, s.Rect)
	}
	tw.Flush()

	if bg := d.dir.BackgroundSessions(); len(bg) > 0 {
		fmt.Fprintf(w, "Background (recent first): %v\n", bg)
	}
	fmt.Fprintln(w)
}

func (d *Dumper) dumpScreens(w io.Writer) {
	screens := d.dir.Screens()
	fmt.Fprintf(w, "ScreenInfos: %d\n", len(screens))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tROTATION\tOFFSET\tFOLD\tMODE")
	for _, s := range screens {
		p := s.Property
		fmt.Fprintf(tw, "%d\t%s\t%dx%d\t%s\t%d,%d\t%s\t%s\n",
			s.ID, s.Name, p.Width, p.Height, p.Rotation, p.OffsetX, p.OffsetY, s.FoldStatus, s.DisplayMode)
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func (d *Dumper) dumpFold(w io.Writer) {
	if d.fold == nil {
		fmt.Fprintln(w, "FoldState: unavailable")
		return
	}
	f := d.fold.Dump()
	fmt.Fprintln(w, "FoldState:")
	fmt.Fprintf(w, "  policy:   %s\n", f.Policy)
	fmt.Fprintf(w, "  status:   %s\n", f.Name)
	fmt.Fprintf(w, "  locked:   %t\n", f.Locked)
	fmt.Fprintf(w, "  angle:    %.2f\n", f.Angle)
	fmt.Fprintf(w, "  hall:     %d\n", f.Hall)
	fmt.Fprintf(w, "  rotation: %s\n", f.Rotation)
	h := f.History
	fmt.Fprintf(w, "  history:  n=%d mean=%.2f std=%.2f min=%.2f max=%.2f\n", h.Samples, h.Mean, h.StdDev, h.Min, h.Max)
}
