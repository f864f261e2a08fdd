package refuges

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var refugeIDPattern = regexp.MustCompile(`refuge_i(\d+)`)

// parseRefugeList extracts refuges from the booking site's home page.
// Listings without a recognisable refuge link are skipped.
func parseRefugeList(r io.Reader) ([]Refuge, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse refuge list HTML: %w", err)
	}

	tabs := doc.Find("div#tabsrefuges")
	if tabs.Length() == 0 {
		return nil, fmt.Errorf("refuge list: %w: no #tabsrefuges block", ErrUnexpectedResponse)
	}

	var list []Refuge
	tabs.Find("div.refuge").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Find("a").First().Attr("href")
		m := refugeIDPattern.FindStringSubmatch(href)
		if len(m) < 2 {
			return
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			return
		}
		name := strings.TrimSpace(s.Find("div.bloccontenurefuge h3").First().Text())
		if name == "" {
			return
		}
		list = append(list, Refuge{ID: id, Name: name})
	})
	return list, nil
}

type planningPayload struct {
	Planning []struct {
		Offset int `json:"d"`
		Places int `json:"s"`
		Closed int `json:"f"`
	} `json:"planning"`
}

// parsePlanning decodes the JSONP-wrapped planning response. Each entry is
// an offset in days from the requested date.
func parsePlanning(body []byte, date Date, retrieved time.Time) (map[Date]Availability, error) {
	trimmed := strings.Trim(strings.TrimSpace(string(body)), "()[]")
	if trimmed == "" {
		return map[Date]Availability{}, nil
	}

	var p planningPayload
	if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
		return nil, fmt.Errorf("planning: %w: %v", ErrUnexpectedResponse, err)
	}

	out := make(map[Date]Availability, len(p.Planning))
	for _, item := range p.Planning {
		out[date.AddDays(item.Offset)] = Availability{
			Places:      item.Places,
			PlacesKnown: true,
			Closed:      item.Closed == 1,
			Bookable:    true,
			Retrieved:   retrieved,
		}
	}
	return out, nil
}

type regionPayload struct {
	ListeID []struct {
		Nom string `json:"Nom"`
		ID  string `json:"Id"`
	} `json:"ListeId"`
}

// parseRegions decodes the JSONP region list.
func parseRegions(body []byte) ([]Region, error) {
	trimmed := strings.Trim(string(body), "()[]\r\n ;")

	var p regionPayload
	if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
		return nil, fmt.Errorf("regions: %w: %v", ErrUnexpectedResponse, err)
	}

	regions := make([]Region, 0, len(p.ListeID))
	for _, loc := range p.ListeID {
		name := strings.Trim(strings.ReplaceAll(loc.Nom, "&nbsp;", "'"), "- '")
		var ids []int
		for _, part := range strings.Split(loc.ID, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("regions: %w: bad refuge id %q in %q", ErrUnexpectedResponse, part, name)
			}
			ids = append(ids, id)
		}
		regions = append(regions, Region{Name: name, RefugeIDs: ids})
	}
	return regions, nil
}

func sortByName(list []Refuge) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
}
