package db

// SchemaSQL defines the document table. Jobs are intentionally not persisted;
// they live in process memory only.
const SchemaSQL = `
DEFINE TABLE IF NOT EXISTS document SCHEMALESS;
DEFINE FIELD IF NOT EXISTS user_id ON document TYPE string;
DEFINE FIELD IF NOT EXISTS title ON document TYPE string;
DEFINE FIELD IF NOT EXISTS source_type ON document TYPE string;
DEFINE FIELD IF NOT EXISTS text ON document TYPE string;
DEFINE FIELD IF NOT EXISTS created_at ON document TYPE datetime DEFAULT time::now();
DEFINE FIELD IF NOT EXISTS updated_at ON document TYPE datetime DEFAULT time::now();
DEFINE INDEX IF NOT EXISTS document_user ON document FIELDS user_id;
`
