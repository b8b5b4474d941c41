/*
Package wireguard handles the local side of the tunnel: rendering server
boot scripts from a peer list, patching the client configuration file and
driving the wg-quick tool.

Client configuration patching is deliberately conservative. Only the
PublicKey and Endpoint values in the first [Peer] section are ever
rewritten; every other byte of the file, including comments, routing
directives and whitespace, is preserved exactly. Files that lack the
expected section or directives fail with ConfigFormatError instead of
being extended.
*/
package wireguard
