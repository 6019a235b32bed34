package db

import (
	"context"
	"fmt"
)

// LinkedNode is the far end of an edge together with whatever the nodes table knows about it.
// Name and Category stay nil when the endpoint was never loaded as a node.
type LinkedNode struct {
	ID        string  `json:"id"`
	Name      *string `json:"name"`
	Category  *string `json:"category"`
	Predicate string  `json:"predicate"`
	EdgeID    string  `json:"edge_id"`
}

func (d *DB) queryLinked(ctx context.Context, q string, args ...any) ([]LinkedNode, error) {
	rows, err := d.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LinkedNode
	for rows.Next() {
		var l LinkedNode
		if err := rows.Scan(&l.ID, &l.Name, &l.Category, &l.Predicate, &l.EdgeID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// EnzymesUsing returns the subjects of has_input-style edges pointing at the substrate.
func (d *DB) EnzymesUsing(ctx context.Context, substrateID string, hasInput PredicateSet) ([]LinkedNode, error) {
	if len(hasInput) == 0 {
		return nil, nil
	}
	args := append(hasInput.args(), substrateID)
	enzymes, err := d.queryLinked(ctx, `
		SELECT e.subject, n.name, n.category, e.predicate, e.id
		FROM edges e
		LEFT JOIN nodes n ON n.id = e.subject
		WHERE e.predicate IN (`+placeholders(len(hasInput))+`) AND e.object = ?
		ORDER BY e.subject, e.id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("enzymes using %s: %w", substrateID, err)
	}
	return enzymes, nil
}

// MediaIngredients returns the objects of has_part-style edges leaving the medium
func (d *DB) MediaIngredients(ctx context.Context, mediaID string, hasPart PredicateSet) ([]LinkedNode, error) {
	if len(hasPart) == 0 {
		return nil, nil
	}
	args := append([]any{mediaID}, hasPart.args()...)
	ingredients, err := d.queryLinked(ctx, `
		SELECT e.object, n.name, n.category, e.predicate, e.id
		FROM edges e
		LEFT JOIN nodes n ON n.id = e.object
		WHERE e.subject = ? AND e.predicate IN (`+placeholders(len(hasPart))+`)
		ORDER BY e.object, e.id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("ingredients of %s: %w", mediaID, err)
	}
	return ingredients, nil
}

// PhenotypeOrganism is an organism carrying at least one queried phenotype
type PhenotypeOrganism struct {
	ID         string   `json:"id"`
	Name       *string  `json:"name"`
	Phenotypes []string `json:"phenotypes"`
}

// MediumUsage is a medium with the number of distinct matching organisms grown in it
type MediumUsage struct {
	ID            string  `json:"id"`
	Name          *string `json:"name"`
	OrganismCount int64   `json:"organism_count"`
}

// PhenotypeMedia finds organisms that have any of the phenotypes, then the media
// those organisms grow in, counting distinct organisms per medium (largest first).
func (d *DB) PhenotypeMedia(ctx context.Context, phenotypeIDs []string, hasPhenotype, growsIn PredicateSet) ([]PhenotypeOrganism, []MediumUsage, error) {
	if len(phenotypeIDs) == 0 || len(hasPhenotype) == 0 {
		return nil, nil, nil
	}

	phenoArgs := make([]any, 0, len(phenotypeIDs)+len(hasPhenotype))
	phenoArgs = append(phenoArgs, hasPhenotype.args()...)
	for _, id := range phenotypeIDs {
		phenoArgs = append(phenoArgs, id)
	}
	matching := `
		SELECT e.subject AS organism, e.object AS phenotype
		FROM edges e
		WHERE e.predicate IN (` + placeholders(len(hasPhenotype)) + `)
		  AND e.object IN (` + placeholders(len(phenotypeIDs)) + `)`

	rows, err := d.conn.QueryContext(ctx, `
		SELECT m.organism, n.name, m.phenotype
		FROM (`+matching+`) m
		LEFT JOIN nodes n ON n.id = m.organism
		ORDER BY m.organism, m.phenotype
	`, phenoArgs...)
	if err != nil {
		return nil, nil, fmt.Errorf("organisms by phenotype: %w", err)
	}

	var organisms []PhenotypeOrganism
	for rows.Next() {
		var id, phenotype string
		var name *string
		if err := rows.Scan(&id, &name, &phenotype); err != nil {
			rows.Close()
			return nil, nil, err
		}
		if len(organisms) > 0 && organisms[len(organisms)-1].ID == id {
			last := &organisms[len(organisms)-1]
			if last.Phenotypes[len(last.Phenotypes)-1] != phenotype {
				last.Phenotypes = append(last.Phenotypes, phenotype)
			}
			continue
		}
		organisms = append(organisms, PhenotypeOrganism{ID: id, Name: name, Phenotypes: []string{phenotype}})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	if len(organisms) == 0 || len(growsIn) == 0 {
		return organisms, nil, nil
	}

	mediaArgs := append(append([]any{}, phenoArgs...), growsIn.args()...)
	rows, err = d.conn.QueryContext(ctx, `
		SELECT g.object, n.name, COUNT(DISTINCT g.subject) AS organisms
		FROM edges g
		LEFT JOIN nodes n ON n.id = g.object
		WHERE g.subject IN (SELECT organism FROM (`+matching+`))
		  AND g.predicate IN (`+placeholders(len(growsIn))+`)
		GROUP BY g.object, n.name
		ORDER BY organisms DESC, g.object
	`, mediaArgs...)
	if err != nil {
		return nil, nil, fmt.Errorf("media by phenotype: %w", err)
	}
	defer rows.Close()

	var media []MediumUsage
	for rows.Next() {
		var m MediumUsage
		if err := rows.Scan(&m.ID, &m.Name, &m.OrganismCount); err != nil {
			return nil, nil, err
		}
		media = append(media, m)
	}
	return organisms, media, rows.Err()
}
