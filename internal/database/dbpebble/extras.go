package dbpebble

/*

0x01 heights       key = [01][4 heightBE]                  val = [32 blockHash][4 tweakCountBE]
0x02 blocks        key = [02][32 blockHash]                val = [4 heightBE]
0x03 block_tweaks  key = [03][32 blockHash][4 posBE]       val = [32 txid][33 tweak]

hashes and txids are stored in the byte order of their hex representation

*/
