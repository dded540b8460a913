package sample

import "padscan/pkg/colorutil"

// Stats is a per-channel mean/std triple in conventional units and
// conventional channel order.
type Stats struct {
	Mean [3]float64
	Std  [3]float64
}

// Report is the output-facing form of a ZoneSample. Colorspace groups
// are nil when their toggle is off.
//
// Conventions: RGB in red,green,blue order on 0-255; hue in degrees
// 0-360 with saturation and value on 0-1; L on 0-100 with a and b
// centered on zero. Converted values are rounded to 8 decimals so the
// numbers survive a CSV round trip.
type Report struct {
	ID      int
	RGB     *Stats
	HSV     *Stats
	Lab     *Stats
	Gray    float64
	GrayStd float64
	Area    float64
}

// Report converts a sample to conventional units. Conversions are
// linear, so standard deviations scale by the same factor as means;
// the a/b bias shift leaves their deviations unchanged.
func (s ZoneSample) Report() Report {
	r := Report{
		ID:      s.ID,
		Gray:    colorutil.Round8(s.Gray),
		GrayStd: colorutil.Round8(s.GrayStd),
		Area:    s.Area,
	}

	if s.Opts.RGB {
		rgb := &Stats{}
		for c := 0; c < 3; c++ {
			rgb.Mean[c] = colorutil.Round8(s.BGR.Mean[2-c])
			rgb.Std[c] = colorutil.Round8(s.BGR.Std[2-c])
		}
		r.RGB = rgb
	}

	if s.Opts.HSV {
		hsv := &Stats{
			Mean: [3]float64{
				colorutil.Round8(colorutil.HueToDegrees(s.HSV.Mean[0])),
				colorutil.Round8(colorutil.ToUnitRange(s.HSV.Mean[1])),
				colorutil.Round8(colorutil.ToUnitRange(s.HSV.Mean[2])),
			},
			Std: [3]float64{
				colorutil.Round8(colorutil.HueToDegrees(s.HSV.Std[0])),
				colorutil.Round8(colorutil.ToUnitRange(s.HSV.Std[1])),
				colorutil.Round8(colorutil.ToUnitRange(s.HSV.Std[2])),
			},
		}
		r.HSV = hsv
	}

	if s.Opts.Lab {
		lab := &Stats{
			Mean: [3]float64{
				colorutil.Round8(colorutil.LabLightness(s.Lab.Mean[0])),
				colorutil.Round8(colorutil.LabChroma(s.Lab.Mean[1])),
				colorutil.Round8(colorutil.LabChroma(s.Lab.Mean[2])),
			},
			Std: [3]float64{
				colorutil.Round8(colorutil.LabLightness(s.Lab.Std[0])),
				colorutil.Round8(s.Lab.Std[1]),
				colorutil.Round8(s.Lab.Std[2]),
			},
		}
		r.Lab = lab
	}

	return r
}
