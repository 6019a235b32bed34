package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"kgmicrobe/kgreason/internal/db"
)

// Roles names the predicates that play a fixed part in the loader and the
// composite queries. Each role accepts several predicates.
type Roles struct {
	Hierarchy    []string `yaml:"hierarchy" json:"hierarchy" validate:"min=1,dive,required"`
	HasInput     []string `yaml:"has_input" json:"has_input" validate:"min=1,dive,required"`
	HasPart      []string `yaml:"has_part" json:"has_part" validate:"min=1,dive,required"`
	HasPhenotype []string `yaml:"has_phenotype" json:"has_phenotype" validate:"min=1,dive,required"`
	GrowsIn      []string `yaml:"grows_in" json:"grows_in" validate:"min=1,dive,required"`
}

// Catalog is the predicate catalog: role assignments plus descriptive
// metadata copied into predicate_index
type Catalog struct {
	Roles      Roles                       `yaml:"roles" json:"roles"`
	Predicates map[string]db.PredicateMeta `yaml:"predicates" json:"predicates"`
}

// DefaultCatalog uses the biolink predicates found in KG-Microbe
func DefaultCatalog() Catalog {
	return Catalog{
		Roles: Roles{
			Hierarchy:    []string{"biolink:subclass_of"},
			HasInput:     []string{"biolink:has_input"},
			HasPart:      []string{"biolink:has_part"},
			HasPhenotype: []string{"biolink:has_phenotype"},
			GrowsIn:      []string{"biolink:occurs_in"},
		},
		Predicates: map[string]db.PredicateMeta{
			"biolink:subclass_of": {Description: "subject is a subclass of object"},
			"biolink:has_input": {
				Description:    "enzyme or reaction consumes the chemical",
				DomainCategory: "biolink:Enzyme",
				RangeCategory:  "biolink:ChemicalSubstance",
			},
			"biolink:has_part": {
				Description:    "medium contains the ingredient",
				DomainCategory: "biolink:GrowthMedium",
				RangeCategory:  "biolink:ChemicalSubstance",
			},
			"biolink:has_phenotype": {
				Description:    "organism exhibits the trait",
				DomainCategory: "biolink:OrganismTaxon",
				RangeCategory:  "biolink:PhenotypicQuality",
			},
			"biolink:occurs_in": {
				Description:    "organism grows in the medium",
				DomainCategory: "biolink:OrganismTaxon",
				RangeCategory:  "biolink:GrowthMedium",
			},
		},
	}
}

// LoadCatalog reads a YAML catalog over DefaultCatalog. Roles present in the
// file replace the default role; predicate entries are added or replaced one by one.
// An empty path returns the defaults.
func LoadCatalog(path string) (Catalog, error) {
	catalog := DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return catalog, fmt.Errorf("reading predicate catalog: %w", err)
	}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return catalog, fmt.Errorf("parsing predicate catalog %s: %w", path, err)
	}
	if err := validate.Struct(catalog); err != nil {
		return catalog, fmt.Errorf("invalid predicate catalog %s: %w", path, err)
	}
	return catalog, nil
}

// Predicate sets for each role, expanded to CURIE and bare spellings
func (r Roles) HierarchySet() db.PredicateSet    { return db.Predicates(r.Hierarchy...) }
func (r Roles) HasInputSet() db.PredicateSet     { return db.Predicates(r.HasInput...) }
func (r Roles) HasPartSet() db.PredicateSet      { return db.Predicates(r.HasPart...) }
func (r Roles) HasPhenotypeSet() db.PredicateSet { return db.Predicates(r.HasPhenotype...) }
func (r Roles) GrowsInSet() db.PredicateSet      { return db.Predicates(r.GrowsIn...) }
