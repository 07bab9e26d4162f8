package db

// IndexBuilder assembles the FT index of one collection.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts an index over the hashes whose keys start with prefix.
func NewIndex(name, prefix string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name, Prefix: prefix}}
}

// Tag adds an exact-match attribute used by pre-filters.
func (b *IndexBuilder) Tag(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, Field{Name: name, Kind: KindTag})
	return b
}

// Text adds a full-text attribute.
func (b *IndexBuilder) Text(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, Field{Name: name, Kind: KindText})
	return b
}

// Vector sets the embedding attribute, exposed to KNN queries under alias.
func (b *IndexBuilder) Vector(name, alias string, dim int) *IndexBuilder {
	b.def.Vector.Name = name
	b.def.Vector.Alias = alias
	b.def.Vector.Dim = dim
	return b
}

// HNSW tunes the graph of the vector attribute.
func (b *IndexBuilder) HNSW(m, efConstruction int) *IndexBuilder {
	b.def.Vector.M = m
	b.def.Vector.EFConstruction = efConstruction
	return b
}

// Build validates and returns a copy of the definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	def := b.def
	def.Fields = append([]Field(nil), b.def.Fields...)
	return &def, nil
}
