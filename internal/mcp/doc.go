// Package mcp serves the compression service as Model Context Protocol
// tools over stdio: coon_compress, coon_decompress, coon_analyze and
// coon_validate.
//
// Each tool takes typed JSON arguments and returns both a short text
// summary and structured output. Service errors surface as tool errors,
// never as protocol failures.
package mcp
