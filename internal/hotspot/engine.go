// Package hotspot computes spatial clusters ("hotspots") of hazard reports.
//
// Clustering is a deterministic k-means over (longitude, latitude) in native
// degrees: centroids are seeded from evenly spaced picks over the distinct
// coordinates sorted by (lon, lat), assignment ties go to the lowest cluster
// index, and iteration is capped. The same report set and parameters always
// produce the same clusters.
package hotspot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/coastwatch-systems/coastwatch/internal/models"
)

// ErrInvalidClusterCount is returned for a non-positive cluster count.
var ErrInvalidClusterCount = errors.New("cluster count must be at least 1")

const maxIterations = 100

// PositionSource supplies the clustering projection of reports in a window.
type PositionSource interface {
	ReportPositions(ctx context.Context, since time.Time) ([]models.ReportPoint, error)
}

// Engine computes hotspots over the current report set. It holds no state
// between calls; every computation reads fresh positions from the source.
type Engine struct {
	source PositionSource
}

func NewEngine(source PositionSource) *Engine {
	return &Engine{source: source}
}

// ComputeHotspots clusters the reports whose event timestamp is >= since into
// at most clusterCount groups. Returns clusters ordered by member count
// (largest first), each with its centroid, member count and dominant event
// type. An empty window yields an empty slice, not an error.
func (e *Engine) ComputeHotspots(ctx context.Context, clusterCount int, since time.Time) ([]models.ReportCluster, error) {
	if clusterCount < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidClusterCount, clusterCount)
	}

	points, err := e.source.ReportPositions(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load report positions: %w", err)
	}
	if len(points) == 0 {
		return []models.ReportCluster{}, nil
	}

	// Canonical input order makes the whole computation deterministic.
	sort.Slice(points, func(i, j int) bool {
		if points[i].Longitude != points[j].Longitude {
			return points[i].Longitude < points[j].Longitude
		}
		if points[i].Latitude != points[j].Latitude {
			return points[i].Latitude < points[j].Latitude
		}
		return points[i].ID < points[j].ID
	})

	centroids := seedCentroids(points, clusterCount)
	assignments := make([]int, len(points))

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, p := range points {
			best := nearestCentroid(p, centroids)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}
		recomputeCentroids(points, assignments, centroids)
	}

	return buildClusters(points, assignments, len(centroids)), nil
}

type centroid struct {
	lon, lat float64
}

// seedCentroids picks up to k initial centroids, evenly spaced over the
// distinct coordinates. Seeding from distinct positions guarantees at most
// one cluster per distinct report location.
func seedCentroids(points []models.ReportPoint, k int) []centroid {
	var distinct []centroid
	for _, p := range points {
		c := centroid{lon: p.Longitude, lat: p.Latitude}
		if len(distinct) == 0 || distinct[len(distinct)-1] != c {
			distinct = append(distinct, c)
		}
	}

	if k > len(distinct) {
		k = len(distinct)
	}

	seeds := make([]centroid, k)
	for j := 0; j < k; j++ {
		seeds[j] = distinct[j*len(distinct)/k]
	}
	return seeds
}

// nearestCentroid returns the index of the closest centroid, lowest index
// winning ties. Squared degree distance suffices at this accuracy level.
func nearestCentroid(p models.ReportPoint, centroids []centroid) int {
	best := 0
	bestDist := sqDist(p, centroids[0])
	for i := 1; i < len(centroids); i++ {
		if d := sqDist(p, centroids[i]); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

func sqDist(p models.ReportPoint, c centroid) float64 {
	dLon := p.Longitude - c.lon
	dLat := p.Latitude - c.lat
	return dLon*dLon + dLat*dLat
}

func recomputeCentroids(points []models.ReportPoint, assignments []int, centroids []centroid) {
	sums := make([]centroid, len(centroids))
	counts := make([]int, len(centroids))

	for i, p := range points {
		a := assignments[i]
		sums[a].lon += p.Longitude
		sums[a].lat += p.Latitude
		counts[a]++
	}

	for i := range centroids {
		if counts[i] == 0 {
			continue // orphaned centroid keeps its position
		}
		centroids[i] = centroid{
			lon: sums[i].lon / float64(counts[i]),
			lat: sums[i].lat / float64(counts[i]),
		}
	}
}

func buildClusters(points []models.ReportPoint, assignments []int, k int) []models.ReportCluster {
	type accumulator struct {
		lonSum, latSum float64
		count          int
		typeCounts     map[models.EventType]int
	}

	acc := make([]accumulator, k)
	for i := range acc {
		acc[i].typeCounts = make(map[models.EventType]int)
	}
	for i, p := range points {
		a := &acc[assignments[i]]
		a.lonSum += p.Longitude
		a.latSum += p.Latitude
		a.count++
		a.typeCounts[p.EventType]++
	}

	clusters := make([]models.ReportCluster, 0, k)
	for _, a := range acc {
		if a.count == 0 {
			continue
		}
		clusters = append(clusters, models.ReportCluster{
			EventType:   dominantType(a.typeCounts),
			ReportCount: a.count,
			CenterLat:   a.latSum / float64(a.count),
			CenterLon:   a.lonSum / float64(a.count),
		})
	}

	// Largest hotspots first; centroid position as a deterministic tie-break.
	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].ReportCount != clusters[j].ReportCount {
			return clusters[i].ReportCount > clusters[j].ReportCount
		}
		if clusters[i].CenterLon != clusters[j].CenterLon {
			return clusters[i].CenterLon < clusters[j].CenterLon
		}
		return clusters[i].CenterLat < clusters[j].CenterLat
	})
	for i := range clusters {
		clusters[i].ClusterID = i + 1
	}
	return clusters
}

// dominantType returns the most frequent event type; ties go to the
// lexicographically smallest type name.
func dominantType(counts map[models.EventType]int) models.EventType {
	var best models.EventType
	bestCount := -1
	for typ, count := range counts {
		if count > bestCount || (count == bestCount && typ < best) {
			best = typ
			bestCount = count
		}
	}
	return best
}
