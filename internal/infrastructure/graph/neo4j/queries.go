package neo4j

// Entity names are stored lowercase in `name`; `displayName` keeps the
// spelling first seen during extraction.

const entitiesForChunkQuery = `
MATCH (c:Chunk {id: $chunkId})
CALL {
  WITH c
  MATCH (c)-[:MENTIONS]->(e)
  RETURN labels(e)[0] AS label, coalesce(e.displayName, e.name) AS name
  UNION
  WITH c
  MATCH (c)-[:MENTIONS]->(:Product)-[:BELONGS_TO|HAS_INGREDIENT|RELATED_TO_TOPIC]->(e)
  RETURN labels(e)[0] AS label, coalesce(e.displayName, e.name) AS name
}
RETURN label, collect(DISTINCT name) AS names
`

const totalProductsQuery = `
MATCH (p:Product)
RETURN count(p) AS total
`

const categoryCountsQuery = `
MATCH (c:Category)<-[:BELONGS_TO]-(p:Product)
RETURN toLower(c.name) AS category, count(DISTINCT p) AS products
`

const mergeChunkQuery = `
MERGE (c:Chunk {id: $chunkId})
`

// Labels cannot be parameterized, so there is one mention query per label.
var mentionQueries = map[string]string{
	labelProduct:    mentionQuery(labelProduct),
	labelCategory:   mentionQuery(labelCategory),
	labelIngredient: mentionQuery(labelIngredient),
	labelTopic:      mentionQuery(labelTopic),
}

func mentionQuery(label string) string {
	return `
MATCH (c:Chunk {id: $chunkId})
UNWIND $items AS item
MERGE (e:` + label + ` {name: item.name})
ON CREATE SET e.displayName = item.displayName
MERGE (c)-[:MENTIONS]->(e)
`
}

type productLink struct {
	relation string
	label    string
}

var productLinks = []productLink{
	{relation: "BELONGS_TO", label: labelCategory},
	{relation: "HAS_INGREDIENT", label: labelIngredient},
	{relation: "RELATED_TO_TOPIC", label: labelTopic},
}

func productLinkQuery(link productLink) string {
	return `
UNWIND $products AS productName
MATCH (p:Product {name: productName})
UNWIND $targets AS targetName
MATCH (t:` + link.label + ` {name: targetName})
MERGE (p)-[:` + link.relation + `]->(t)
`
}
