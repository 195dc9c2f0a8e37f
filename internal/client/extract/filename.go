package extract

import (
	"regexp"
	"strconv"
	"time"
)

// Patterns seen in names produced by phone cameras and messengers, most
// specific first. Each captures year, month, day and optionally hour,
// minute, second.
var filenameDatePatterns = []*regexp.Regexp{
	// PXL_20200715_200713876.jpg, IMG_20190101_123456.jpg, VID_20190101_123456.mp4
	regexp.MustCompile(`(?:PXL|IMG|VID|MVIMG)_(\d{4})(\d{2})(\d{2})_(\d{2})(\d{2})(\d{2})`),
	// Screenshot_20181227-152914.png
	regexp.MustCompile(`Screenshot_(\d{4})(\d{2})(\d{2})-(\d{2})(\d{2})(\d{2})`),
	// signal-2019-10-08-121040.jpg
	regexp.MustCompile(`signal-(\d{4})-(\d{2})-(\d{2})-(\d{2})(\d{2})(\d{2})`),
	// 2019-10-08 12.10.40.jpg, 20191008_121040.jpg
	regexp.MustCompile(`(\d{4})-?(\d{2})-?(\d{2})[ _T-](\d{2})[.:]?(\d{2})[.:]?(\d{2})`),
	// IMG-20171218-WA0028.jpg
	regexp.MustCompile(`IMG-(\d{4})(\d{2})(\d{2})-WA\d+`),
}

// TimeFromFilename extracts a capture time from a file name. The digits
// are local wall-clock time and are resolved in loc.
func TimeFromFilename(name string, loc *time.Location, now time.Time) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}

	for _, re := range filenameDatePatterns {
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}

		parts := make([]int, 6)
		for i := 1; i < len(m) && i <= 6; i++ {
			parts[i-1], _ = strconv.Atoi(m[i])
		}

		t := time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], 0, loc)
		if !plausible(t, parts, now) {
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

func plausible(t time.Time, parts []int, now time.Time) bool {
	if parts[0] < 1990 || t.After(now.Add(24*time.Hour)) {
		return false
	}
	// time.Date normalizes overflow; reject anything it had to fix up.
	return int(t.Month()) == parts[1] && t.Day() == parts[2] && t.Hour() == parts[3] &&
		t.Minute() == parts[4] && t.Second() == parts[5]
}
