package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"grainseg/pkg/errors"
	"grainseg/pkg/misorientation"
	"grainseg/pkg/orientation"
	"grainseg/pkg/symmetry"
)

// misorientationCommand creates the misorientation command.
func (c *CLI) misorientationCommand() *cobra.Command {
	var className string

	cmd := &cobra.Command{
		Use:   "misorientation <phi1,Phi,phi2> <phi1,Phi,phi2>",
		Short: "Disorientation between two orientations given as Bunge Euler angles",
		Long: `Misorientation prints the smallest rotation angle relating two orientations
under the chosen Laue class, with its axis folded into the fundamental sector.
Euler angles are Bunge (ZXZ) in degrees.`,
		Example: `  grainseg misorientation --class cubic 0,0,0 45,0,0
  grainseg misorientation --class 6/mmm 10,20,30 40,50,60`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			class, err := symmetry.Parse(className)
			if err != nil {
				return errors.Wrap(errors.ErrCodeUnknownClass, err, "invalid crystal class")
			}
			e1, err := parseEuler(args[0])
			if err != nil {
				return err
			}
			e2, err := parseEuler(args[1])
			if err != nil {
				return err
			}

			q1 := orientation.EulerToQuaternion(e1)
			q2 := orientation.EulerToQuaternion(e2)
			r := misorientation.Compute(q1, q2, class)
			c.Logger.Debug("computed disorientation", "class", class, "q1", q1, "q2", q2)

			w := cmd.OutOrStdout()
			if !r.Comparable() {
				printWarning(w, "orientations of class %s cannot be compared", class)
				return nil
			}
			printKeyValue(w, "class", "%s (%s)", class, class.Laue())
			printKeyValue(w, "angle", "%.4f°", r.Angle)
			printKeyValue(w, "axis", "[%.4f %.4f %.4f]", r.Axis.X, r.Axis.Y, r.Axis.Z)
			printKeyValue(w, "max for class", "%.4f°", symmetry.MaxDisorientation(class))
			return nil
		},
	}

	cmd.Flags().StringVar(&className, "class", symmetry.CubicHigh.String(), "Laue class name or symbol")
	return cmd
}

// parseEuler parses "phi1,Phi,phi2" in degrees.
func parseEuler(s string) (orientation.Euler, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return orientation.Euler{}, errors.New(errors.ErrCodeInvalidInput, "euler angles %q: want three comma-separated values", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orientation.Euler{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "euler angles %q", s)
		}
		v[i] = f
	}
	return orientation.EulerFromDegrees(v[0], v[1], v[2]), nil
}
